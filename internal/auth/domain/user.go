package domain

import "time"

type User struct {
	ID             int64
	Email          string
	Username       string
	HashedPassword string
	IsActive       bool
	IsAdmin        bool
	IsVerified     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLogin      *time.Time
}

// Session is the durable record of one authenticated client instance. The
// refresh token stored here is the only one accepted for this session; it is
// not rotated on refresh.
type Session struct {
	ID           int64
	UserID       int64
	SessionID    string
	RefreshToken string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
}
