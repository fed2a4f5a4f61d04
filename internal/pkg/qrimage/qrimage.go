// Package qrimage renders tokens as QR codes for screens and terminals.
package qrimage

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Size bounds for PNG output, in pixels.
const (
	DefaultSize = 320
	MinSize     = 64
	MaxSize     = 1024
)

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("qrimage: content is empty")

// ClampSize maps a requested size into [MinSize, MaxSize], using DefaultSize
// for zero or negative input.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

// PNG encodes content at medium error correction.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	b, err := qrcode.Encode(content, qrcode.Medium, ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("qrimage: encode png: %w", err)
	}
	return b, nil
}

// Terminal renders content with half-height block characters.
func Terminal(content string) (string, error) {
	if content == "" {
		return "", ErrEmptyContent
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("qrimage: encode terminal: %w", err)
	}
	return q.ToSmallString(false), nil
}
