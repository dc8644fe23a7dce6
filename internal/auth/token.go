package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nbekov/account-service/internal/domain"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultResetTTL   = 1 * time.Hour
)

// TokenIssuer signs and verifies the two token kinds the service hands out:
// session tokens (bearer credential after login) and reset tokens
// (single-purpose, short-lived, carry a jti for one-time use).
type TokenIssuer struct {
	key        []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
}

func NewTokenIssuer(key []byte) *TokenIssuer {
	return &TokenIssuer{
		key:        key,
		sessionTTL: defaultSessionTTL,
		resetTTL:   defaultResetTTL,
	}
}

func (i *TokenIssuer) IssueSession(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(i.sessionTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) IssueReset(email string) (token, jti string, expiresAt time.Time, err error) {
	now := time.Now()
	jti = uuid.NewString()
	expiresAt = now.Add(i.resetTTL)
	claims := jwt.MapClaims{
		"email": email,
		"jti":   jti,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign reset token: %w", err)
	}
	return token, jti, expiresAt, nil
}

// VerifyReset checks signature and expiry and returns the embedded email
// and jti. Anything wrong with the token maps to domain.ErrTokenInvalid.
func (i *TokenIssuer) VerifyReset(raw string) (email, jti string, err error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	})
	if err != nil || !token.Valid {
		return "", "", domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", domain.ErrTokenInvalid
	}
	email, ok = claims["email"].(string)
	if !ok || email == "" {
		return "", "", domain.ErrTokenInvalid
	}
	jti, ok = claims["jti"].(string)
	if !ok || jti == "" {
		return "", "", domain.ErrTokenInvalid
	}
	return email, jti, nil
}
