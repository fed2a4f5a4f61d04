package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACSHA256 computes hex-encoded HMAC-SHA256 digests under a fixed key.
type HMACSHA256 struct {
	key []byte
}

// NewHMACSHA256 creates a hasher keyed by a copy of key.
func NewHMACSHA256(key []byte) *HMACSHA256 {
	return &HMACSHA256{key: append([]byte(nil), key...)}
}

// Hash returns the lowercase hex HMAC-SHA256 of str.
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	return s.gen(str), nil
}

// Hex is Hash as a string.
func (s *HMACSHA256) Hex(str string) string {
	return string(s.gen(str))
}

// Verify reports in constant time whether hashed is the digest of str.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	return subtle.ConstantTimeCompare([]byte(hashed), s.gen(str)) == 1
}

func (s *HMACSHA256) gen(str string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(str))
	sum := h.Sum(nil)
	result := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(result, sum)
	return result
}
