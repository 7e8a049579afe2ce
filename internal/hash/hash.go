package hash

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
)

const saltSize = 64

// HashPassword derives a credential pair for storage: a random per-user salt
// and an HMAC-SHA512 of the password keyed with that salt.
func HashPassword(password string) (hashed, salt []byte, err error) {
	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}

	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(password))
	return mac.Sum(nil), salt, nil
}

// CheckPassword recomputes the keyed hash and compares the full byte
// sequence in constant time.
func CheckPassword(password string, hashed, salt []byte) bool {
	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(password))
	computed := mac.Sum(nil)

	return subtle.ConstantTimeCompare(computed, hashed) == 1
}
