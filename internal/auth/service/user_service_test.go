package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/dto"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/service"
	autherror "github.com/AnthoniusHendriyanto/jwt-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/mocks"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func refreshClaims(userID string) *service.Claims {
	return &service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
}

func TestUserService_Register_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	input := dto.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	}

	var created *domain.User
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *domain.User) error {
			created = u
			return nil
		})

	user, err := s.Register(context.Background(), input)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, input.Name, user.Name)
	assert.Equal(t, input.Email, user.Email)
	assert.NotEmpty(t, user.ID)
	assert.NotZero(t, user.Joined)

	// The store receives a bcrypt hash, never the plaintext.
	require.NotNil(t, created)
	assert.NotEqual(t, input.Password, created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(input.Password)))
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(autherror.ErrEmailAlreadyInUse)

	_, err := s.Register(context.Background(), dto.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})

	assert.ErrorIs(t, err, autherror.ErrEmailAlreadyInUse)
}

func TestUserService_Login_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		ID:           "user-1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: string(passwordHash),
	}

	refreshExpiry := time.Now().Add(15 * time.Minute)
	input := dto.LoginInput{
		Email:     "alice@example.com",
		Password:  "password123",
		IPAddress: "203.0.113.7",
		UserAgent: "go-test",
	}

	mockRepo.EXPECT().GetByEmail(gomock.Any(), input.Email).Return(user, nil)
	mockTokens.EXPECT().IssueAccessToken("user-1").Return("access-token", time.Now().Add(3*time.Minute), nil)
	mockTokens.EXPECT().IssueRefreshToken("user-1").Return("refresh-token", refreshExpiry, nil)

	var stored *domain.RefreshToken
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *domain.RefreshToken) error {
			stored = rt
			return nil
		})

	var attempt *domain.LoginAttempt
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *domain.LoginAttempt) error {
			attempt = a
			return nil
		})

	result, err := s.Login(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Equal(t, "refresh-token", result.RefreshToken)
	assert.Equal(t, refreshExpiry.Unix(), result.RefreshExpiresAt)

	// Only the SHA-256 of the refresh token reaches the ledger.
	require.NotNil(t, stored)
	assert.Equal(t, sha256Hex("refresh-token"), stored.TokenHash)
	assert.NotContains(t, stored.TokenHash, "refresh-token")
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, input.IPAddress, stored.IPAddress)
	assert.False(t, stored.Revoked)

	require.NotNil(t, attempt)
	assert.True(t, attempt.Successful)
	require.NotNil(t, attempt.UserID)
	assert.Equal(t, "user-1", *attempt.UserID)
	assert.Equal(t, input.IPAddress, attempt.IPAddress)
	assert.Equal(t, input.UserAgent, attempt.UserAgent)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{ID: "user-1", Email: "alice@example.com", PasswordHash: string(passwordHash)}

	mockRepo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(user, nil)

	var attempt *domain.LoginAttempt
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *domain.LoginAttempt) error {
			attempt = a
			return nil
		})

	_, err = s.Login(context.Background(), dto.LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})

	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
	require.NotNil(t, attempt)
	assert.False(t, attempt.Successful)
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	mockRepo.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, nil)

	var attempt *domain.LoginAttempt
	mockRepo.EXPECT().RecordLoginAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *domain.LoginAttempt) error {
			attempt = a
			return nil
		})

	_, err := s.Login(context.Background(), dto.LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever1",
	})

	// Same error kind as a wrong password: the caller cannot tell which
	// case occurred.
	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
	require.NotNil(t, attempt)
	assert.False(t, attempt.Successful)
	assert.Nil(t, attempt.UserID)
}

func TestUserService_Refresh_Success_NonRotating(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	raw := "valid-refresh-token"
	record := &domain.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		TokenHash: sha256Hex(raw),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}

	mockTokens.EXPECT().Verify(raw, service.RefreshToken).Return(refreshClaims("user-1"), nil)
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "user-1", sha256Hex(raw)).Return(record, nil)
	mockTokens.EXPECT().IssueAccessToken("user-1").Return("new-access-token", time.Now().Add(3*time.Minute), nil)

	result, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: raw})

	require.NoError(t, err)
	assert.Equal(t, "new-access-token", result.AccessToken)
	// Non-rotating: the presented refresh token is reused as-is.
	assert.Empty(t, result.RefreshToken)
}

func TestUserService_Refresh_Rotating(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, true, testLogger())

	raw := "old-refresh-token"
	record := &domain.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		TokenHash: sha256Hex(raw),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	newExpiry := time.Now().Add(15 * time.Minute)

	mockTokens.EXPECT().Verify(raw, service.RefreshToken).Return(refreshClaims("user-1"), nil)
	mockRepo.EXPECT().GetRefreshToken(gomock.Any(), "user-1", sha256Hex(raw)).Return(record, nil)
	mockTokens.EXPECT().IssueAccessToken("user-1").Return("new-access-token", time.Now().Add(3*time.Minute), nil)
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), sha256Hex(raw)).Return(nil)
	mockTokens.EXPECT().IssueRefreshToken("user-1").Return("new-refresh-token", newExpiry, nil)

	var stored *domain.RefreshToken
	mockRepo.EXPECT().StoreRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *domain.RefreshToken) error {
			stored = rt
			return nil
		})

	result, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: raw})

	require.NoError(t, err)
	assert.Equal(t, "new-access-token", result.AccessToken)
	assert.Equal(t, "new-refresh-token", result.RefreshToken)
	assert.Equal(t, newExpiry.Unix(), result.RefreshExpiresAt)

	require.NotNil(t, stored)
	assert.Equal(t, sha256Hex("new-refresh-token"), stored.TokenHash)
}

func TestUserService_Refresh_Failures(t *testing.T) {
	raw := "some-refresh-token"

	tests := []struct {
		name    string
		setup   func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator)
		wantErr error
	}{
		{
			name: "expired signature",
			setup: func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator) {
				tokens.EXPECT().Verify(raw, service.RefreshToken).Return(nil, autherror.ErrTokenExpired)
			},
			wantErr: autherror.ErrTokenExpired,
		},
		{
			name: "bad signature",
			setup: func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator) {
				tokens.EXPECT().Verify(raw, service.RefreshToken).Return(nil, autherror.ErrTokenInvalid)
			},
			wantErr: autherror.ErrTokenInvalid,
		},
		{
			name: "not in ledger despite valid signature",
			setup: func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator) {
				tokens.EXPECT().Verify(raw, service.RefreshToken).Return(refreshClaims("user-1"), nil)
				repo.EXPECT().GetRefreshToken(gomock.Any(), "user-1", sha256Hex(raw)).Return(nil, nil)
			},
			wantErr: autherror.ErrRefreshTokenNotFound,
		},
		{
			name: "revoked",
			setup: func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator) {
				tokens.EXPECT().Verify(raw, service.RefreshToken).Return(refreshClaims("user-1"), nil)
				repo.EXPECT().GetRefreshToken(gomock.Any(), "user-1", sha256Hex(raw)).Return(&domain.RefreshToken{
					UserID:    "user-1",
					Revoked:   true,
					ExpiresAt: time.Now().Add(10 * time.Minute),
				}, nil)
			},
			wantErr: autherror.ErrRefreshTokenRevoked,
		},
		{
			name: "ledger row expired",
			setup: func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator) {
				tokens.EXPECT().Verify(raw, service.RefreshToken).Return(refreshClaims("user-1"), nil)
				repo.EXPECT().GetRefreshToken(gomock.Any(), "user-1", sha256Hex(raw)).Return(&domain.RefreshToken{
					UserID:    "user-1",
					ExpiresAt: time.Now().Add(-time.Minute),
				}, nil)
			},
			wantErr: autherror.ErrRefreshTokenExpired,
		},
		{
			name: "ledger lookup error",
			setup: func(repo *mocks.MockUserRepository, tokens *mocks.MockTokenGenerator) {
				tokens.EXPECT().Verify(raw, service.RefreshToken).Return(refreshClaims("user-1"), nil)
				repo.EXPECT().GetRefreshToken(gomock.Any(), "user-1", sha256Hex(raw)).Return(nil, errors.New("db down"))
			},
			wantErr: nil, // any non-nil error, mapped to 500 at the boundary
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockUserRepository(ctrl)
			mockTokens := mocks.NewMockTokenGenerator(ctrl)
			s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

			tt.setup(mockRepo, mockTokens)

			_, err := s.Refresh(context.Background(), dto.RefreshInput{RefreshToken: raw})

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestUserService_Logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	raw := "refresh-token-to-revoke"
	mockRepo.EXPECT().RevokeRefreshToken(gomock.Any(), sha256Hex(raw)).Return(nil)

	assert.NoError(t, s.Logout(context.Background(), raw))

	// No token presented is a no-op success; the repo is not touched.
	assert.NoError(t, s.Logout(context.Background(), ""))
}

func TestUserService_WhoAmI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	joined := time.Now().Add(-24 * time.Hour)
	issuedAt := time.Now().Truncate(time.Second)

	mockRepo.EXPECT().GetByID(gomock.Any(), "user-1").Return(&domain.User{
		ID:        "user-1",
		Name:      "Alice",
		Email:     "alice@example.com",
		CreatedAt: joined,
	}, nil)
	mockTokens.EXPECT().GetAccessTokenExpiry().Return(3 * time.Minute)

	out, err := s.WhoAmI(context.Background(), "user-1", issuedAt)

	require.NoError(t, err)
	assert.Equal(t, "Alice", out.User.Name)
	assert.Equal(t, joined, out.User.Joined)
	assert.Equal(t, issuedAt, out.Session.CreatedAt)
	assert.Equal(t, int64(180), out.Session.MaxAge)
	assert.Equal(t, issuedAt.Add(3*time.Minute), out.Session.ExpiresAt)
}

func TestUserService_WhoAmI_UserDeleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	mockRepo.EXPECT().GetByID(gomock.Any(), "ghost").Return(nil, nil)

	_, err := s.WhoAmI(context.Background(), "ghost", time.Now())
	assert.ErrorIs(t, err, autherror.ErrUserNotFound)
}

func TestUserService_LoginAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	userID := "user-1"
	now := time.Now()
	mockRepo.EXPECT().ListLoginAttempts(gomock.Any(), userID).Return([]domain.LoginAttempt{
		{ID: "a-1", UserID: &userID, Email: "alice@example.com", IPAddress: "203.0.113.7", Successful: true, AttemptTime: now},
		{ID: "a-2", UserID: &userID, Email: "alice@example.com", IPAddress: "203.0.113.8", Successful: false, AttemptTime: now},
	}, nil)

	logs, err := s.ListLoginAttempts(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a-1", logs[0].ID)
	assert.True(t, logs[0].Successful)
	assert.False(t, logs[1].Successful)

	mockRepo.EXPECT().DeleteLoginAttempts(gomock.Any(), userID).Return(int64(2), nil)
	assert.NoError(t, s.ClearLoginAttempts(context.Background(), userID))
}

func TestUserService_ForceLogout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	mockRepo.EXPECT().RevokeAllByUserID(gomock.Any(), "user-1").Return(nil)

	assert.NoError(t, s.ForceLogout(context.Background(), "user-1"))
}

func TestUserService_SweepExpiredTokens(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockTokens := mocks.NewMockTokenGenerator(ctrl)
	s := service.NewUserService(mockRepo, mockTokens, false, testLogger())

	mockRepo.EXPECT().DeleteExpiredRefreshTokens(gomock.Any()).Return(int64(3), nil)
	s.SweepExpiredTokens(context.Background())

	// Errors are logged, not propagated.
	mockRepo.EXPECT().DeleteExpiredRefreshTokens(gomock.Any()).Return(int64(0), errors.New("db down"))
	s.SweepExpiredTokens(context.Background())
}
