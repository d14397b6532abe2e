package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnthoniusHendriyanto/jwt-auth-service/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/jwt-auth-service/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code raised by the unique
// constraint on users.email.
const uniqueViolation = "23505"

// PgxPool is the subset of pgxpool.Pool the repository uses; pgxmock
// implements it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db PgxPool
}

func NewPostgresRepository(db PgxPool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, email)

	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, id)

	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// Create inserts a new user. The unique constraint on email resolves races
// between concurrent registrations; a violation surfaces as
// ErrEmailAlreadyInUse.
func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return autherror.ErrEmailAlreadyInUse
	}

	return err
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, revoked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		rt.ID, rt.UserID, rt.TokenHash, rt.IPAddress, rt.UserAgent,
		rt.ExpiresAt, rt.CreatedAt, rt.Revoked)
	return err
}

func (r *PostgresRepository) GetRefreshToken(ctx context.Context, userID, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, revoked, revoked_at
		FROM refresh_tokens
		WHERE user_id = $1 AND token_hash = $2
		ORDER BY created_at DESC
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, userID, tokenHash)

	var rt domain.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.IPAddress, &rt.UserAgent,
		&rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked, &rt.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &rt, nil
}

// RevokeRefreshToken marks every row matching the hash as revoked. Unknown
// or already-revoked hashes are a no-op success.
func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = now()
		WHERE token_hash = $1 AND revoked = FALSE
	`, tokenHash)
	return err
}

func (r *PostgresRepository) RevokeAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = now()
		WHERE user_id = $1 AND revoked = FALSE
	`, userID)
	return err
}

func (r *PostgresRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at < now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, user_id, email, ip_address, user_agent, successful, attempt_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, attempt.ID, attempt.UserID, attempt.Email, attempt.IPAddress,
		attempt.UserAgent, attempt.Successful, attempt.AttemptTime)
	return err
}

func (r *PostgresRepository) ListLoginAttempts(ctx context.Context, userID string) ([]domain.LoginAttempt, error) {
	query := `
		SELECT id, user_id, email, ip_address, user_agent, successful, attempt_time
		FROM login_attempts
		WHERE user_id = $1
		ORDER BY attempt_time DESC;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.LoginAttempt
	for rows.Next() {
		var a domain.LoginAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.Email, &a.IPAddress,
			&a.UserAgent, &a.Successful, &a.AttemptTime); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

func (r *PostgresRepository) DeleteLoginAttempts(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM login_attempts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
