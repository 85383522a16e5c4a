// Package auth resolves the owner id that scopes remote rows.
//
// The access token is issued by the backend. The client never holds the
// signing key, so it reads the subject claim without verifying the
// signature; the backend verifies the token on every request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredentials means neither an owner id nor a token is configured.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrTokenExpired is returned for a token past its exp claim.
	ErrTokenExpired = errors.New("access token expired")

	// ErrNoSubject is returned for a token without a sub claim.
	ErrNoSubject = errors.New("access token has no subject")
)

// OwnerFromToken returns the sub claim of an access token.
func OwnerFromToken(tokenStr string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("parsing access token: %w", err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// VerifyToken checks an HS256 signature and returns the subject. It is used
// where the shared secret is available, as with a self-hosted backend.
func VerifyToken(tokenStr, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrTokenExpired
	}
	if err != nil {
		return "", fmt.Errorf("verifying access token: %w", err)
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// IssueToken signs an HS256 token for owner. The dev remote uses it.
func IssueToken(owner, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ResolveOwner picks the configured owner id, falling back to the token's
// subject.
func ResolveOwner(ownerID, accessToken string, now time.Time) (string, error) {
	if ownerID != "" {
		return ownerID, nil
	}
	if accessToken == "" {
		return "", ErrNoCredentials
	}
	return OwnerFromToken(accessToken, now)
}
