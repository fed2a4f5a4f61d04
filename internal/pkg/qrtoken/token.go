package qrtoken

import (
	"crypto/sha256"
	"strconv"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/hash"
)

// DefaultIntervalSeconds is the rotation interval used when none is configured.
const DefaultIntervalSeconds int64 = 50

// TokenLength is the length of every generated token.
const TokenLength = sha256.Size * 2

// WindowStart aligns a millisecond timestamp to the start (in Unix seconds) of
// its rotation window. Division floors toward negative infinity, so instants
// before the epoch land in the window that contains them.
// A non-positive interval is treated as DefaultIntervalSeconds.
func WindowStart(timestampMillis, intervalSeconds int64) int64 {
	interval := normalize(intervalSeconds)
	return floorDiv(timestampMillis, interval*1000) * interval
}

// WindowExpiry returns the first second after the window starting at windowStart.
func WindowExpiry(windowStart, intervalSeconds int64) int64 {
	return windowStart + normalize(intervalSeconds)
}

// Generate returns the token for the window containing timestampMillis.
func Generate(secret Secret, timestampMillis, intervalSeconds int64) string {
	return ForWindow(secret, WindowStart(timestampMillis, intervalSeconds))
}

// ForWindow returns the token for an already aligned window start.
func ForWindow(secret Secret, windowStart int64) string {
	return hash.NewHMACSHA256(secret).Hex(message(windowStart))
}

// message is the signed payload for a window: its start in decimal seconds.
func message(windowStart int64) string {
	return strconv.FormatInt(windowStart, 10)
}

func normalize(intervalSeconds int64) int64 {
	if intervalSeconds <= 0 {
		return DefaultIntervalSeconds
	}
	return intervalSeconds
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
