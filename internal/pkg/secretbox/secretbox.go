// Package secretbox seals session secrets at rest with AES-256-GCM.
//
// Keys are derived per purpose from one master key with HKDF-SHA256, and the
// sealed bytes are bound to the owning meeting through the GCM additional
// data, so a blob copied between meetings or between the database and the
// cache fails to open.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

// Sealed format:
// [0..1]   uint16 version
// [2..13]  nonce
// [14..]   gcm.Seal output
const version uint16 = 1

const (
	nonceSize = 12
	keyLen    = 32
	headerLen = 2 + nonceSize
)

var (
	ErrMasterKeyLength    = errors.New("secretbox: master key must be at least 32 bytes")
	ErrPlaintextEmpty     = errors.New("secretbox: plaintext is empty")
	ErrSealedTooShort     = errors.New("secretbox: sealed data too short")
	ErrUnsupportedVersion = errors.New("secretbox: unsupported version")
	ErrOpenFailed         = errors.New("secretbox: open failed")
)

// Purpose separates key material by where the sealed bytes live.
type Purpose string

const (
	PurposeStore Purpose = "store"
	PurposeCache Purpose = "cache"
)

// Scope identifies what a sealed value belongs to.
type Scope struct {
	MeetingID int64
	Purpose   Purpose
}

func (s Scope) aad() []byte {
	sum := sha256.Sum256([]byte("meeting=" + strconv.FormatInt(s.MeetingID, 10) + "\npurpose=" + string(s.Purpose) + "\n"))
	return sum[:]
}

// Box seals and opens small secrets.
type Box interface {
	Seal(plaintext []byte, scope Scope) ([]byte, error)
	Open(sealed []byte, scope Scope) ([]byte, error)
}

// AESGCM is the Box implementation.
type AESGCM struct {
	master []byte
	rand   io.Reader
}

// New returns an AESGCM box keyed by master.
func New(master []byte) (*AESGCM, error) {
	if len(master) < keyLen {
		return nil, ErrMasterKeyLength
	}
	k := make([]byte, len(master))
	copy(k, master)
	return &AESGCM{master: k, rand: rand.Reader}, nil
}

func (b *AESGCM) aead(p Purpose) (cipher.AEAD, error) {
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, b.master, nil, []byte("attendance/"+string(p))), key); err != nil {
		return nil, fmt.Errorf("secretbox: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes init: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// Seal encrypts plaintext for scope.
func (b *AESGCM) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := b.aead(scope.Purpose)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerLen, headerLen+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out[0:2], version)
	if _, err := io.ReadFull(b.rand, out[2:headerLen]); err != nil {
		return nil, fmt.Errorf("secretbox: nonce: %w", err)
	}

	return gcm.Seal(out, out[2:headerLen], plaintext, scope.aad()), nil
}

// Open decrypts data produced by Seal for the same scope. It does not tell a
// wrong key apart from a wrong scope or tampering.
func (b *AESGCM) Open(sealed []byte, scope Scope) ([]byte, error) {
	if len(sealed) <= headerLen {
		return nil, ErrSealedTooShort
	}
	if v := binary.BigEndian.Uint16(sealed[0:2]); v != version {
		return nil, fmt.Errorf("secretbox: version %d: %w", v, ErrUnsupportedVersion)
	}

	gcm, err := b.aead(scope.Purpose)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, sealed[2:headerLen], sealed[headerLen:], scope.aad())
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plain, nil
}
