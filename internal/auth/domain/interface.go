package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, skip, limit int) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *Session) (int64, error)
	// GetByRefreshToken returns the unexpired session owned by userID that
	// holds the given refresh token, or nil when no such session exists.
	GetByRefreshToken(ctx context.Context, refreshToken string, userID int64) (*Session, error)
	SessionsForUser(ctx context.Context, userID int64) ([]Session, error)
	TouchSession(ctx context.Context, id int64, at time.Time) error
	DeleteSession(ctx context.Context, sessionID string, userID int64) (bool, error)
}

// SessionMirror is the ephemeral copy of a session kept in the fast cache.
type SessionMirror struct {
	RefreshToken string `json:"refresh_token"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
}

// TokenCache is the fast-cache surface the auth core depends on. All
// operations are best-effort accelerants; the database stays authoritative.
type TokenCache interface {
	CacheToken(ctx context.Context, token string, userID int64, ttl time.Duration) error
	// UserIDForToken returns (0, false, nil) on a clean miss and a non-nil
	// error when the cache itself is unreachable.
	UserIDForToken(ctx context.Context, token string) (int64, bool, error)
	InvalidateToken(ctx context.Context, token string) error
	CacheSession(ctx context.Context, sessionID string, userID int64, mirror SessionMirror, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID string, userID int64) error
}
