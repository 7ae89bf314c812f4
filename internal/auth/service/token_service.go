package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherror "github.com/proxygate/proxygate/internal/errors"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenGenerator interface {
	Issue(userID int64, email, tokenType string, ttl time.Duration) (string, error)
	IssueAccess(userID int64, email string) (string, error)
	IssueRefresh(userID int64, email string) (string, error)
	Verify(tokenString string) (*JWTCustomClaims, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// TokenService issues and verifies signed bearer tokens. It is stateless;
// the token itself carries the subject, expiry, and type.
type TokenService struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Type  string `json:"type"`
}

// UserID parses the subject claim back into a numeric user id.
func (c *JWTCustomClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, autherror.ErrMalformedToken
	}
	return id, nil
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		Secret:             secret,
		AccessTokenExpiry:  accessTTL,
		RefreshTokenExpiry: refreshTTL,
	}
}

func (ts *TokenService) Issue(userID int64, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := JWTCustomClaims{
		Email: email,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.Secret))
}

func (ts *TokenService) IssueAccess(userID int64, email string) (string, error) {
	return ts.Issue(userID, email, TokenTypeAccess, ts.AccessTokenExpiry)
}

func (ts *TokenService) IssueRefresh(userID int64, email string) (string, error) {
	return ts.Issue(userID, email, TokenTypeRefresh, ts.RefreshTokenExpiry)
}

func (ts *TokenService) AccessTokenTTL() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) RefreshTokenTTL() time.Duration {
	return ts.RefreshTokenExpiry
}

// Verify checks signature and expiry. It deliberately does not check the
// token type; callers that only accept access tokens must inspect
// claims.Type themselves.
func (ts *TokenService) Verify(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.Secret), nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, autherror.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, autherror.ErrBadSignature
		default:
			return nil, autherror.ErrMalformedToken
		}
	}

	if !token.Valid {
		return nil, autherror.ErrMalformedToken
	}

	return claims, nil
}
