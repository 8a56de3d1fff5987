// Package token generates the opaque identifiers and credentials used by
// the relay: request/tunnel correlation ids, API keys, and session tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	apiKeyPrefix  = "pk_"
	sessionPrefix = "st_"

	apiKeyBytes  = 24
	sessionBytes = 32
)

// New returns prefix followed by n crypto-random bytes in URL-safe base64.
// It fails only when the system entropy source does, which callers treat
// as a fatal internal fault.
func New(prefix string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewAPIKey mints a long-lived credential. 24 random bytes keep the
// collision probability negligible for any realistic key population.
func NewAPIKey() (string, error) {
	return New(apiKeyPrefix, apiKeyBytes)
}

// NewSessionToken mints a short-lived, high-entropy session token.
func NewSessionToken() (string, error) {
	return New(sessionPrefix, sessionBytes)
}

// NewRequestID returns the correlation id for one HTTP exchange across
// the tunnel. Uniqueness among in-flight exchanges is all the protocol
// needs; UUIDv4 gives global uniqueness for free.
func NewRequestID() string {
	return uuid.NewString()
}

// NewTunnelID identifies one registered tunnel.
func NewTunnelID() string {
	return uuid.NewString()
}

// Fingerprint derives a short stable identifier from a secret so logs can
// reference keys and tokens without ever carrying the raw material.
func Fingerprint(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:6])
}
