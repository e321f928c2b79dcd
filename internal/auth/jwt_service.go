package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "taskapi/internal/errors"
)

const (
	// AccessTokenTTL is the default lifetime of an access token.
	AccessTokenTTL = 30 * time.Minute
	// TokenType is the OAuth2 token type reported to clients.
	TokenType = "bearer"
)

// ErrMissingSecret is returned when the token service is built without a signing key.
var ErrMissingSecret = errors.New("jwt secret key is not set")

// TokenService issues and validates HS256-signed access tokens.
// The secret is fixed at construction and never changes afterwards.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTokenService creates a token service with the given secret and TTL.
// A non-positive ttl falls back to AccessTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = AccessTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		// Expiry is checked against the caller's clock in Validate.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID that expires at now + TTL.
func (s *TokenService) Issue(userID uuid.UUID, now time.Time) (token string, expiresAt time.Time, err error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Validate checks the signature and expiry of token and returns its subject.
// Any failure is reported as ErrInvalidToken.
func (s *TokenService) Validate(tokenString string, now time.Time) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperrors.ErrInvalidToken
	}

	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return uuid.Nil, apperrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, apperrors.ErrInvalidToken
	}
	return userID, nil
}
