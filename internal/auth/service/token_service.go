package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"time"

	autherror "github.com/AnthoniusHendriyanto/jwt-auth-service/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects which signing secret and TTL apply. Access and refresh
// tokens use independent secrets so that compromising one cannot forge the
// other.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

type Claims struct {
	jwt.RegisteredClaims
}

type TokenGenerator interface {
	IssueAccessToken(userID string) (string, time.Time, error)
	IssueRefreshToken(userID string) (string, time.Time, error)
	Verify(tokenString string, kind TokenKind) (*Claims, error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenExpiry:  accessTTL,
		RefreshTokenExpiry: refreshTTL,
	}
}

func (ts *TokenService) IssueAccessToken(userID string) (string, time.Time, error) {
	return ts.issue(userID, ts.AccessTokenSecret, ts.AccessTokenExpiry)
}

func (ts *TokenService) IssueRefreshToken(userID string) (string, time.Time, error) {
	return ts.issue(userID, ts.RefreshTokenSecret, ts.RefreshTokenExpiry)
}

func (ts *TokenService) issue(userID, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// Verify parses and validates a token of the given kind. It is pure and
// performs no I/O. Expiry and signature failures are reported as distinct
// sentinels because they imply different client recovery.
func (ts *TokenService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := ts.AccessTokenSecret
	if kind == RefreshToken {
		secret = ts.RefreshTokenSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, autherror.ErrTokenInvalid
	}

	return claims, nil
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.RefreshTokenExpiry
}
