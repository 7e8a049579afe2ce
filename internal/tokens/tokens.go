package tokens

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the payload of a signed access token. The jti lives in
// RegisteredClaims.ID and binds the token to its refresh-token record.
type AccessClaims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func SignAccessToken(claims *AccessClaims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}
}

func AccessClaimsFromToken(tokenStr string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid access token")
	}
	return &claims, nil
}

// AccessClaimsAllowExpired verifies the signature but skips claim validation,
// so an expired access token can still accompany a refresh request. The
// expiry claim must still be present and parseable.
func AccessClaimsAllowExpired(tokenStr string, secret []byte) (*AccessClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	var claims AccessClaims
	if _, err := parser.ParseWithClaims(tokenStr, &claims, keyFunc(secret)); err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("access token missing expiry")
	}
	return &claims, nil
}

func NewJTI() string {
	return uuid.NewString()
}

const (
	opaqueAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	opaqueLength   = 24
)

// NewOpaqueToken returns the random refresh-token value. It is never parsed,
// only matched byte-for-byte against the stored record.
func NewOpaqueToken() (string, error) {
	// Bytes at or above the largest multiple of the alphabet size are
	// redrawn; a plain modulo would skew toward the first 48 letters.
	const limit = 256 - 256%len(opaqueAlphabet)

	out := make([]byte, 0, opaqueLength)
	buf := make([]byte, opaqueLength)
	for len(out) < opaqueLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate refresh token: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, opaqueAlphabet[int(b)%len(opaqueAlphabet)])
			if len(out) == opaqueLength {
				break
			}
		}
	}
	return string(out), nil
}
