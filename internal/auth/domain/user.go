package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// RefreshToken is one ledger row. TokenHash is the hex-encoded SHA-256 of
// the raw token; the raw token itself is never persisted.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

type LoginAttempt struct {
	ID          string
	UserID      *string
	Email       string
	IPAddress   string
	UserAgent   string
	Successful  bool
	AttemptTime time.Time
}
