package dto

import (
	"time"
)

type UserOutput struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Joined time.Time `json:"joined"`
}

// SessionOutput is presentation metadata synthesized from the access
// token's issuance time; no session object is persisted server-side.
type SessionOutput struct {
	CreatedAt time.Time `json:"createdAt"`
	MaxAge    int64     `json:"maxAge"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type WhoAmIOutput struct {
	User    UserOutput    `json:"user"`
	Session SessionOutput `json:"session"`
}

type LoginAttemptOutput struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Successful  bool      `json:"successful"`
	AttemptTime time.Time `json:"attempt_time"`
}
