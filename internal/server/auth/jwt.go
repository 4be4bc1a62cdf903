// Package auth issues and verifies signed tokens and hashes passwords.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tells apart tokens minted for different purposes, so a
// verification link cannot be replayed as an access token.
type TokenKind string

const (
	KindVerification TokenKind = "verification"
	KindAccess       TokenKind = "access"
	KindRefresh      TokenKind = "refresh"
)

// Claims are the registered claims plus the subject user and token kind.
// The token id travels in RegisteredClaims.ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"userId"`
	Kind   TokenKind `json:"kind"`
}

// IssuedToken is a freshly signed token with its id and expiry.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenService signs and verifies tokens.
type TokenService interface {
	Issue(userID string, kind TokenKind, ttl time.Duration) (*IssuedToken, error)
	// Verify returns the claims of a valid token of the given kind. It fails
	// with common.ErrTokenExpired past expiry and common.ErrInvalidToken for
	// anything else.
	Verify(token string, kind TokenKind) (*Claims, error)
}

// JWTService is an HS256 TokenService.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService returns a JWTService signing with secret.
func NewJWTService(secret []byte) *JWTService {
	return &JWTService{secret: secret, now: time.Now}
}

func (s *JWTService) Issue(userID string, kind TokenKind, ttl time.Duration) (*IssuedToken, error) {
	now := s.now()
	id := uuid.NewString()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Kind:   kind,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{Token: tokenString, ID: id, ExpiresAt: expiresAt}, nil
}

func (s *JWTService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
