package token

// Package token signs and verifies the portal's session bearer tokens.
// Tokens are HS256 JWTs embedding the session ID and a user snapshot; the
// session record in the store remains authoritative for status and activity.

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

const issuer = "terralink-portal"

// Claims are the JWT claims carried by a session token.
type Claims struct {
	SessionID string          `json:"sid"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      domainauth.Role `json:"role"`
	Picture   string          `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec. The secret's strength is enforced at config
// validation; an empty secret here is a programming error.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Sign issues a token for the session, expiring at the session's ValidUntil.
func (c *Codec) Sign(sess domainauth.Session) (string, error) {
	claims := Claims{
		SessionID: sess.ID,
		Email:     sess.User.Email,
		Name:      sess.User.Name,
		Role:      sess.User.Role,
		Picture:   sess.User.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sess.User.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ValidUntil),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign session token")
	}
	return signed, nil
}

// Verify checks signature, method, issuer, and expiry. Expired tokens are
// reported as token_expired; every other failure as invalid_token.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, apperrors.New(apperrors.ErrCodeInvalidToken, "token is required")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "session token expired")
		}
		return Claims{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidToken, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.New(apperrors.ErrCodeInvalidToken, "invalid session token")
	}
	if claims.SessionID == "" || claims.Subject == "" || claims.Email == "" {
		return Claims{}, apperrors.New(apperrors.ErrCodeInvalidToken, "session token missing required claims")
	}

	return *claims, nil
}

// User reconstructs the user snapshot embedded in the claims.
func (cl Claims) User() domainauth.User {
	return domainauth.User{
		ID:      cl.Subject,
		Email:   cl.Email,
		Name:    cl.Name,
		Picture: cl.Picture,
		Role:    cl.Role,
	}
}

// ExpiresAtTime returns the token expiry as a time.Time.
func (cl Claims) ExpiresAtTime() time.Time {
	if cl.ExpiresAt == nil {
		return time.Time{}
	}
	return cl.ExpiresAt.Time
}
