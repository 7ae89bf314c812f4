package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/proxygate/proxygate/internal/auth/domain"
)

// PgxIface is the subset of pgxpool.Pool the repository uses; pgxmock
// implements it for tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db PgxIface
}

func NewPostgresRepository(db PgxIface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, username, hashed_password, is_active, is_admin, is_verified, created_at, updated_at, last_login`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.HashedPassword,
		&user.IsActive, &user.IsAdmin, &user.IsVerified,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	query := `
		INSERT INTO users (email, username, hashed_password, is_active, is_admin, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		user.Email, user.Username, user.HashedPassword,
		user.IsActive, user.IsAdmin, user.IsVerified,
		user.CreatedAt, user.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 LIMIT 1;`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id OFFSET $1 LIMIT $2;`
	rows, err := r.db.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		err := rows.Scan(&user.ID, &user.Email, &user.Username, &user.HashedPassword,
			&user.IsActive, &user.IsAdmin, &user.IsVerified,
			&user.CreatedAt, &user.UpdatedAt, &user.LastLogin)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, username = $3, is_active = $4, is_admin = $5, is_verified = $6, updated_at = $7
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.Username, user.IsActive, user.IsAdmin, user.IsVerified, user.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET hashed_password = $2, updated_at = now() WHERE id = $1`,
		id, hashedPassword)
	return err
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

const sessionColumns = `id, user_id, session_id, refresh_token, ip_address, user_agent, created_at, expires_at, last_activity`

func (r *PostgresRepository) CreateSession(ctx context.Context, s *domain.Session) (int64, error) {
	query := `
		INSERT INTO sessions (user_id, session_id, refresh_token, ip_address, user_agent, created_at, expires_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.SessionID, s.RefreshToken, s.IPAddress, s.UserAgent,
		s.CreatedAt, s.ExpiresAt, s.LastActivity).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, refreshToken string, userID int64) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token = $1 AND user_id = $2 AND expires_at > now()
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, refreshToken, userID)

	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.SessionID, &s.RefreshToken, &s.IPAddress,
		&s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

func (r *PostgresRepository) SessionsForUser(ctx context.Context, userID int64) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND expires_at > now();`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		err := rows.Scan(&s.ID, &s.UserID, &s.SessionID, &s.RefreshToken, &s.IPAddress,
			&s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.LastActivity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) TouchSession(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET last_activity = $2 WHERE id = $1`, id, at)
	return err
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionID string, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
