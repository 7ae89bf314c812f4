package errors

import (
	"errors"
)

// Authentication failures (HTTP 401, WebSocket close 1008).
var (
	ErrMissingToken       = errors.New("authorization token required")
	ErrMalformedToken     = errors.New("malformed token")
	ErrBadSignature       = errors.New("invalid token signature")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionInvalid     = errors.New("session not found or expired")
)

// Authorization failures (HTTP 403, WebSocket close 1008).
var (
	ErrUserInactive = errors.New("user is inactive")
	ErrNotAdmin     = errors.New("admin privileges required")
)

// Validation failures.
var (
	ErrBadTargetURL    = errors.New("invalid target URL: only http and https are allowed")
	ErrBodyTooLarge    = errors.New("request body exceeds size limit")
	ErrPasswordTooWeak = errors.New("password does not meet minimum length")
)

// Conflicts on registration and profile updates.
var (
	ErrEmailInUse    = errors.New("email already in use")
	ErrUsernameInUse = errors.New("username already in use")
)

// Upstream failures produced by the relay engine.
var (
	ErrUpstreamTimeout = errors.New("upstream request timed out")
	ErrUpstreamConnect = errors.New("could not connect to upstream")
)

var ErrSessionNotFound = errors.New("session not found")
