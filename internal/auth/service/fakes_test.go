package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/proxygate/proxygate/internal/auth/domain"
)

// memoryStore is an in-memory UserRepository + SessionRepository used by the
// service tests.
type memoryStore struct {
	mu          sync.Mutex
	users       map[int64]*domain.User
	sessions    map[int64]*domain.Session
	nextUserID  int64
	nextSessionID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[int64]*domain.User),
		sessions: make(map[int64]*domain.Session),
	}
}

func (m *memoryStore) Create(_ context.Context, user *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	u := *user
	u.ID = m.nextUserID
	m.users[u.ID] = &u
	return u.ID, nil
}

func (m *memoryStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copy := *u
	return &copy, nil
}

func (m *memoryStore) List(_ context.Context, skip, limit int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return errors.New("no such user")
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *memoryStore) UpdatePassword(_ context.Context, id int64, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.HashedPassword = hashedPassword
	}
	return nil
}

func (m *memoryStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		t := at
		u.LastLogin = &t
	}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	for sid, s := range m.sessions {
		if s.UserID == id {
			delete(m.sessions, sid)
		}
	}
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, s *domain.Session) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSessionID++
	copy := *s
	copy.ID = m.nextSessionID
	m.sessions[copy.ID] = &copy
	return copy.ID, nil
}

func (m *memoryStore) GetByRefreshToken(_ context.Context, refreshToken string, userID int64) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, s := range m.sessions {
		if s.RefreshToken == refreshToken && s.UserID == userID && s.ExpiresAt.After(now) {
			copy := *s
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) SessionsForUser(_ context.Context, userID int64) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryStore) TouchSession(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActivity = at
	}
	return nil
}

func (m *memoryStore) DeleteSession(_ context.Context, sessionID string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.SessionID == sessionID && s.UserID == userID {
			delete(m.sessions, id)
			return true, nil
		}
	}
	return false, nil
}

// fakeCache implements domain.TokenCache. Setting unavailable makes every
// operation fail, which simulates an unreachable Redis.
type fakeCache struct {
	mu          sync.Mutex
	tokens      map[string]int64
	sessions    map[string]domain.SessionMirror
	unavailable bool
}

var errCacheDown = errors.New("cache unavailable")

func newFakeCache() *fakeCache {
	return &fakeCache{
		tokens:   make(map[string]int64),
		sessions: make(map[string]domain.SessionMirror),
	}
}

func (f *fakeCache) CacheToken(_ context.Context, token string, userID int64, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return errCacheDown
	}
	f.tokens[token] = userID
	return nil
}

func (f *fakeCache) UserIDForToken(_ context.Context, token string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return 0, false, errCacheDown
	}
	id, ok := f.tokens[token]
	return id, ok, nil
}

func (f *fakeCache) InvalidateToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return errCacheDown
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeCache) CacheSession(_ context.Context, sessionID string, _ int64, mirror domain.SessionMirror, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return errCacheDown
	}
	f.sessions[sessionID] = mirror
	return nil
}

func (f *fakeCache) DeleteSession(_ context.Context, sessionID string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return errCacheDown
	}
	delete(f.sessions, sessionID)
	return nil
}
