// Package client implements the browser-side half of the token lifecycle
// for Go callers: it owns the current access token, tracks its expiry from
// the decoded claims, refreshes proactively before expiry, and retries a
// rejected request exactly once after a reactive refresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired, please log in again")
)

type Config struct {
	BaseURL string
	// RefreshLeeway is how close to expiry the access token may get before
	// a request triggers a proactive refresh.
	RefreshLeeway time.Duration
	Timeout       time.Duration
}

// Session is the single source of truth for the current access token. The
// refresh token lives in the cookie jar and is never read by this code.
type Session struct {
	baseURL       string
	httpClient    *http.Client
	refreshLeeway time.Duration

	mu          sync.Mutex
	accessToken string
	issuedAt    time.Time
	expiresAt   time.Time
}

func New(cfg Config) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	leeway := cfg.RefreshLeeway
	if leeway == 0 {
		leeway = 10 * time.Second
	}

	return &Session{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Jar: jar, Timeout: timeout},
		refreshLeeway: leeway,
	}, nil
}

type RegisteredUser struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Joined time.Time `json:"joined"`
}

func (s *Session) Register(ctx context.Context, name, email, password string) (*RegisteredUser, error) {
	body, _ := json.Marshal(map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})

	resp, err := s.post(ctx, "/auth/register", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("registration failed: %s", readError(resp.Body))
	}

	var user RegisteredUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode registration response: %w", err)
	}

	return &user, nil
}

// Login authenticates and stores the access token. The refresh token
// arrives as an httpOnly cookie and stays in the jar.
func (s *Session) Login(ctx context.Context, email, password string) error {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp, err := s.post(ctx, "/auth/login", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", readError(resp.Body))
	}

	return s.storeTokenFrom(resp.Body)
}

// Logout revokes the refresh token server-side and clears local state.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.post(ctx, "/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	s.clearToken()

	return nil
}

// Do performs an authenticated request against the service. When the token
// is close to expiry it refreshes first; on a 401 it refreshes and replays
// the request exactly once, then propagates whatever comes back. A failed
// refresh clears local state and reports ErrSessionExpired.
func (s *Session) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	if s.Remaining() < s.refreshLeeway {
		// Best effort: if the proactive refresh fails, the reactive path
		// below still gets its one attempt.
		if err := s.refresh(ctx); err == nil {
			token = s.Token()
		}
	}

	resp, err := s.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_ = resp.Body.Close()

	if err := s.refresh(ctx); err != nil {
		s.clearToken()
		return nil, ErrSessionExpired
	}

	return s.send(ctx, method, path, body, s.Token())
}

func (s *Session) refresh(ctx context.Context) error {
	resp, err := s.post(ctx, "/auth/refresh", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	return s.storeTokenFrom(resp.Body)
}

// storeTokenFrom decodes {"accessToken": ...} and records the claim-derived
// expiry. The decode skips signature verification: the times feed countdown
// and refresh timing only, never an authorization decision.
func (s *Session) storeTokenFrom(body io.Reader) error {
	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(payload.AccessToken, claims); err != nil {
		return fmt.Errorf("decode token claims: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = payload.AccessToken
	if claims.IssuedAt != nil {
		s.issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}

	return nil
}

func (s *Session) clearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.issuedAt = time.Time{}
	s.expiresAt = time.Time{}
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Remaining reports the access token's remaining lifetime, for countdown
// display and refresh timing.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt.IsZero() {
		return 0
	}

	remaining := time.Until(s.expiresAt)
	if remaining < 0 {
		return 0
	}

	return remaining
}

func (s *Session) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return s.httpClient.Do(req)
}

func (s *Session) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.httpClient.Do(req)
}

func readError(body io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "unexpected response"
	}
	if payload.Error != "" {
		return payload.Error
	}
	if payload.Message != "" {
		return payload.Message
	}

	return "unexpected response"
}
