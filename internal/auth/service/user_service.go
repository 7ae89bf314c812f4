package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/proxygate/proxygate/internal/auth/domain"
	"github.com/proxygate/proxygate/internal/auth/dto"
	autherror "github.com/proxygate/proxygate/internal/errors"
)

type UserService struct {
	users             domain.UserRepository
	sessions          domain.SessionRepository
	tokens            TokenGenerator
	cache             domain.TokenCache
	passwordMinLength int
}

func NewUserService(users domain.UserRepository, sessions domain.SessionRepository,
	tokens TokenGenerator, cache domain.TokenCache, passwordMinLength int) *UserService {
	return &UserService{
		users:             users,
		sessions:          sessions,
		tokens:            tokens,
		cache:             cache,
		passwordMinLength: passwordMinLength,
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	if len(input.Password) < s.passwordMinLength {
		return nil, autherror.ErrPasswordTooWeak
	}

	existing, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailInUse
	}

	existing, err = s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrUsernameInUse
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		Email:          input.Email,
		Username:       input.Username,
		HashedPassword: string(hashed),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	return user, nil
}

// Login authenticates the user and creates a session. The session row is
// committed to the database first; the cache mirror is best-effort and a
// failure there leaves the session fully valid.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(input.Password)) != nil {
		return nil, autherror.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, autherror.ErrUserInactive
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		UserID:       user.ID,
		SessionID:    uuid.NewString(),
		RefreshToken: refreshToken,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.tokens.RefreshTokenTTL()),
		LastActivity: now,
	}

	if _, err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	if err := s.cache.CacheToken(ctx, accessToken, user.ID, s.tokens.AccessTokenTTL()); err != nil {
		logrus.WithError(err).Warn("failed to cache access token")
	}

	mirror := domain.SessionMirror{
		RefreshToken: refreshToken,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
	}
	if err := s.cache.CacheSession(ctx, session.SessionID, user.ID, mirror, s.tokens.RefreshTokenTTL()); err != nil {
		logrus.WithError(err).Warn("failed to cache session mirror")
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is returned unchanged; refresh tokens are not
// rotated.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, autherror.ErrMalformedToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, autherror.ErrUserInactive
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, autherror.ErrSessionInvalid
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheToken(ctx, accessToken, user.ID, s.tokens.AccessTokenTTL()); err != nil {
		logrus.WithError(err).Warn("failed to cache access token")
	}

	if err := s.sessions.TouchSession(ctx, session.ID, time.Now()); err != nil {
		logrus.WithError(err).Warn("failed to update session activity")
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout evicts the presented access token from the cache so the fast-path
// lookup stops matching it. The token remains structurally valid until it
// expires; sessions are revoked separately.
func (s *UserService) Logout(ctx context.Context, accessToken string) {
	if err := s.cache.InvalidateToken(ctx, accessToken); err != nil {
		logrus.WithError(err).Warn("failed to evict access token")
	}
}

func (s *UserService) Sessions(ctx context.Context, userID int64) ([]domain.Session, error) {
	return s.sessions.SessionsForUser(ctx, userID)
}

// RevokeSession deletes the session row if it belongs to userID and evicts
// its cache mirror. Returns whether a row was actually deleted.
func (s *UserService) RevokeSession(ctx context.Context, sessionID string, userID int64) (bool, error) {
	deleted, err := s.sessions.DeleteSession(ctx, sessionID, userID)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	if err := s.cache.DeleteSession(ctx, sessionID, userID); err != nil {
		logrus.WithError(err).Warn("failed to evict session mirror")
	}

	return true, nil
}

func (s *UserService) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, user *domain.User, input dto.UpdateProfileInput) error {
	if input.Email != "" && input.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return autherror.ErrEmailInUse
		}
		user.Email = input.Email
	}

	if input.Username != "" && input.Username != user.Username {
		existing, err := s.users.GetByUsername(ctx, input.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return autherror.ErrUsernameInUse
		}
		user.Username = input.Username
	}

	user.UpdatedAt = time.Now()
	return s.users.Update(ctx, user)
}

func (s *UserService) ChangePassword(ctx context.Context, user *domain.User, input dto.PasswordChangeInput) error {
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(input.CurrentPassword)) != nil {
		return autherror.ErrInvalidCredentials
	}

	if len(input.NewPassword) < s.passwordMinLength {
		return autherror.ErrPasswordTooWeak
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hashed))
}

func (s *UserService) ListUsers(ctx context.Context, skip, limit int) ([]domain.User, error) {
	return s.users.List(ctx, skip, limit)
}

func (s *UserService) UpdateUser(ctx context.Context, userID int64, input dto.UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	if err := s.UpdateProfile(ctx, user, input); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}

	// Session rows cascade with the user row.
	return s.users.Delete(ctx, userID)
}
