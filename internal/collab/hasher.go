// Package collab holds the external collaborators the handlers call:
// password hashing, charge submission and message delivery.
package collab

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Hasher derives a stored credential from a password.
// Hash must be deterministic for a given configuration.
type Hasher interface {
	Hash(password string) string
}

// Argon2 parameters. Changing them invalidates every stored hash.
const (
	argonTime    = 1
	argonMemory  = 8 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// Argon2Hasher is an argon2id hasher keyed by a server-side secret used as salt.
type Argon2Hasher struct {
	secret []byte
}

// NewArgon2Hasher creates a hasher for secret.
func NewArgon2Hasher(secret string) *Argon2Hasher {
	return &Argon2Hasher{secret: []byte(secret)}
}

// Hash returns the hex-encoded argon2id key of password.
func (h *Argon2Hasher) Hash(password string) string {
	key := argon2.IDKey([]byte(password), h.secret, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}

// Matches compares password against a stored hash in constant time.
func Matches(h Hasher, password, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(password)), []byte(stored)) == 1
}
