package qrtoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// SecretSize is the number of random bytes in a session secret.
const SecretSize = 32

var (
	// ErrSecretLength is returned when a decoded secret is not SecretSize bytes.
	ErrSecretLength = errors.New("qrtoken: secret must be 32 bytes")
	// ErrSecretEncoding is returned when a secret is not valid hex.
	ErrSecretEncoding = errors.New("qrtoken: secret is not hex encoded")
)

// Secret is the HMAC key shared by the server and the display devices of one
// active session. Its String form is redacted so it never leaks into logs.
type Secret []byte

// NewSecret reads SecretSize bytes from crypto/rand.
func NewSecret() (Secret, error) {
	return newSecretFrom(rand.Reader)
}

func newSecretFrom(r io.Reader) (Secret, error) {
	b := make([]byte, SecretSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("qrtoken: read random: %w", err)
	}
	return Secret(b), nil
}

// ParseSecret decodes a hex transport form produced by Hex.
func ParseSecret(s string) (Secret, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrSecretEncoding
	}
	if len(b) != SecretSize {
		return nil, ErrSecretLength
	}
	return Secret(b), nil
}

// Hex returns the lowercase hex transport form.
func (s Secret) Hex() string {
	return hex.EncodeToString(s)
}

func (s Secret) String() string {
	if len(s) == 0 {
		return ""
	}
	return "[redacted]"
}

// GoString keeps %#v from printing the bytes.
func (s Secret) GoString() string {
	return s.String()
}
