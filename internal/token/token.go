// Package token signs, verifies and decodes the HS256 access tokens used by
// the auth core. Verification here is purely structural (signature, issuer,
// audience, expiry); revocation is the session store's job.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "pulsemon"
	Audience = "users"

	// TypeAccess is the only token type this codec mints. The claim exists
	// so a future refresh-token type cannot be replayed as an access token.
	TypeAccess = "access"
)

var (
	ErrEmptySecret      = errors.New("token: signing secret is empty")
	ErrMalformedToken   = errors.New("token: malformed token")
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrExpired          = errors.New("token: expired")
	ErrIssuerAudience   = errors.New("token: issuer/audience mismatch")
	ErrMissingClaims    = errors.New("token: missing required claims")
)

// Claims is the signed payload carried by every access token.
type Claims struct {
	jwt.RegisteredClaims
	Type     string   `json:"type"`
	UserID   uint     `json:"userId"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Issue creates a signed token for the user. The roles baked into the token
// are informational; authorization re-resolves roles on every request.
func Issue(userID uint, username string, roles []string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ID:        fmt.Sprintf("%d-%d", userID, now.UnixNano()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:     TypeAccess,
		UserID:   userID,
		Username: username,
		Roles:    roles,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

// Verify validates signature, issuer, audience and expiry in one pass and
// returns the claims. It touches no external state.
func Verify(tokenStr string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %w", ErrIssuerAudience, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
	}
	if !tkn.Valid {
		return nil, ErrInvalidSignature
	}

	if claims.Type != TypeAccess || claims.UserID == 0 || claims.Username == "" || claims.Roles == nil {
		return nil, ErrMissingClaims
	}

	return &claims, nil
}

// Decode parses the claims without checking the signature. Introspection
// only; never use the result for an authorization decision.
func Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	return &claims, nil
}
