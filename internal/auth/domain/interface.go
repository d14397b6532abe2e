package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/domain UserRepository

import "context"

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error

	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshToken(ctx context.Context, userID, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	RecordLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	ListLoginAttempts(ctx context.Context, userID string) ([]LoginAttempt, error)
	DeleteLoginAttempts(ctx context.Context, userID string) (int64, error)
}
