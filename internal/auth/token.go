// Package auth implements the stateless session token codec and the HTTP
// authentication gate that guards account-scoped endpoints.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned once the clock passes the embedded expiry.
	ErrExpiredToken = errors.New("expired token")
)

// TokenCodec issues and verifies signed, time-limited identity tokens.
// Tokens are stateless HS256 JWTs carrying the account ID and an expiry;
// there is no revocation list, expiry is the only lifecycle bound.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec from the configured secret and TTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the codec's clock. Tests use this to cross the TTL
// without sleeping.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// TTL returns the configured token lifetime, which also bounds the
// session cookie.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue produces a signed token embedding the account ID and an expiry.
// The issue time is embedded too, so two tokens for the same account are
// not required to be equal.
func (c *TokenCodec) Issue(accountID string) (string, error) {
	issuedAt := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates the signature and expiry, returning the embedded
// account ID. It fails with ErrExpiredToken past the TTL and
// ErrInvalidToken for anything else wrong with the credential.
func (c *TokenCodec) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
