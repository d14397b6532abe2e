package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/jwt-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/pkg/constant"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	repo          domain.UserRepository
	tokenService  TokenGenerator
	rotateRefresh bool
	log           *slog.Logger
}

func NewUserService(repo domain.UserRepository, tokenService TokenGenerator, rotateRefresh bool, log *slog.Logger) *UserService {
	return &UserService{
		repo:          repo,
		tokenService:  tokenService,
		rotateRefresh: rotateRefresh,
		log:           log,
	}
}

// hashToken computes the one-way hash under which refresh tokens are kept
// in the ledger. The raw token never reaches storage.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.UserOutput, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
	}

	// Uniqueness is enforced by the store's constraint, not a prior read,
	// so racing registrations resolve to exactly one winner.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return &dto.UserOutput{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Joined: user.CreatedAt,
	}, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// Burn a comparison so unknown-email and wrong-password take
		// comparable time.
		_ = bcrypt.CompareHashAndPassword([]byte(constant.DummyPasswordHash), []byte(input.Password))
		s.recordAttempt(ctx, nil, input, false)
		return nil, autherror.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		s.recordAttempt(ctx, &user.ID, input, false)
		return nil, autherror.ErrInvalidCredentials
	}

	accessToken, _, err := s.tokenService.IssueAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := s.tokenService.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	rt := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		ExpiresAt: refreshExpiresAt,
		CreatedAt: time.Now(),
		Revoked:   false,
	}
	if err := s.repo.StoreRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.recordAttempt(ctx, &user.ID, input, true)

	return &dto.LoginResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt.Unix(),
	}, nil
}

// recordAttempt appends one row per login attempt, success or failure. A
// failed insert must not change the login outcome.
func (s *UserService) recordAttempt(ctx context.Context, userID *string, input dto.LoginInput, success bool) {
	attempt := &domain.LoginAttempt{
		ID:          uuid.NewString(),
		UserID:      userID,
		Email:       input.Email,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		Successful:  success,
		AttemptTime: time.Now(),
	}
	if err := s.repo.RecordLoginAttempt(ctx, attempt); err != nil {
		s.log.Warn("failed to record login attempt", "email", input.Email, "error", err)
	}
}

// Refresh exchanges a still-valid refresh token for a new access token.
// The signature check runs first, but the ledger is authoritative: a
// missing, revoked or past-expiry row rejects the refresh even when the
// signature verifies. By default the presented refresh token is reused;
// with rotation enabled the old row is revoked and a new token issued.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.RefreshResult, error) {
	claims, err := s.tokenService.Verify(input.RefreshToken, RefreshToken)
	if err != nil {
		return nil, err
	}

	tokenHash := hashToken(input.RefreshToken)
	record, err := s.repo.GetRefreshToken(ctx, claims.Subject, tokenHash)
	if err != nil {
		return nil, err
	}

	switch {
	case record == nil:
		return nil, autherror.ErrRefreshTokenNotFound
	case record.Revoked:
		return nil, autherror.ErrRefreshTokenRevoked
	case time.Now().After(record.ExpiresAt):
		return nil, autherror.ErrRefreshTokenExpired
	}

	accessToken, _, err := s.tokenService.IssueAccessToken(record.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	result := &dto.RefreshResult{AccessToken: accessToken}

	if s.rotateRefresh {
		if err := s.repo.RevokeRefreshToken(ctx, tokenHash); err != nil {
			return nil, fmt.Errorf("revoke rotated token: %w", err)
		}

		newRefreshToken, newExpiresAt, err := s.tokenService.IssueRefreshToken(record.UserID)
		if err != nil {
			return nil, fmt.Errorf("issue refresh token: %w", err)
		}

		newRecord := &domain.RefreshToken{
			ID:        uuid.NewString(),
			UserID:    record.UserID,
			TokenHash: hashToken(newRefreshToken),
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			ExpiresAt: newExpiresAt,
			CreatedAt: time.Now(),
			Revoked:   false,
		}
		if err := s.repo.StoreRefreshToken(ctx, newRecord); err != nil {
			return nil, fmt.Errorf("store rotated refresh token: %w", err)
		}

		result.RefreshToken = newRefreshToken
		result.RefreshExpiresAt = newExpiresAt.Unix()
	}

	return result, nil
}

// Logout revokes the ledger rows matching the presented token. Revoking an
// unknown or already-revoked token is a no-op success.
func (s *UserService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	return s.repo.RevokeRefreshToken(ctx, hashToken(rawToken))
}

// WhoAmI returns the caller's public profile plus session metadata derived
// from the access token's issuance time. The "session" is a presentation
// construct; nothing is persisted for it.
func (s *UserService) WhoAmI(ctx context.Context, userID string, issuedAt time.Time) (*dto.WhoAmIOutput, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	maxAge := s.tokenService.GetAccessTokenExpiry()

	return &dto.WhoAmIOutput{
		User: dto.UserOutput{
			ID:     user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Joined: user.CreatedAt,
		},
		Session: dto.SessionOutput{
			CreatedAt: issuedAt,
			MaxAge:    int64(maxAge.Seconds()),
			ExpiresAt: issuedAt.Add(maxAge),
		},
	}, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*dto.UserOutput, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	return &dto.UserOutput{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Joined: user.CreatedAt,
	}, nil
}

// ListLoginAttempts returns the calling user's own attempt log rows only.
func (s *UserService) ListLoginAttempts(ctx context.Context, userID string) ([]dto.LoginAttemptOutput, error) {
	attempts, err := s.repo.ListLoginAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.LoginAttemptOutput, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, dto.LoginAttemptOutput{
			ID:          a.ID,
			Email:       a.Email,
			IPAddress:   a.IPAddress,
			UserAgent:   a.UserAgent,
			Successful:  a.Successful,
			AttemptTime: a.AttemptTime,
		})
	}

	return out, nil
}

func (s *UserService) ClearLoginAttempts(ctx context.Context, userID string) error {
	_, err := s.repo.DeleteLoginAttempts(ctx, userID)
	return err
}

// ForceLogout revokes every active refresh token the user holds.
func (s *UserService) ForceLogout(ctx context.Context, userID string) error {
	return s.repo.RevokeAllByUserID(ctx, userID)
}

// SweepExpiredTokens prunes ledger rows past their expiry.
func (s *UserService) SweepExpiredTokens(ctx context.Context) {
	deleted, err := s.repo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		s.log.Warn("refresh token sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.log.Info("pruned expired refresh tokens", "count", deleted)
	}
}
