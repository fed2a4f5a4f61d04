package qrtoken

import "github.com/Frankpesta/cds-attendance-sub001/internal/pkg/hash"

// DefaultStaleWindows is how many windows back a token still counts as
// "expired" rather than "mismatch".
const DefaultStaleWindows = 10

// Verdict is the outcome of checking a submitted token.
type Verdict int

const (
	// VerdictMismatch means the token matches no recent window.
	VerdictMismatch Verdict = iota
	// VerdictAccepted means the token belongs to the current or previous window.
	VerdictAccepted
	// VerdictExpired means the token was genuine but its window is too old.
	VerdictExpired
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictExpired:
		return "expired"
	default:
		return "token_mismatch"
	}
}

// Verification describes which window (if any) a token matched.
type Verification struct {
	Verdict Verdict
	// WindowStart is the matched window start in Unix seconds; zero on mismatch.
	WindowStart int64
	// Lag is how many windows behind the current one the match was.
	Lag int
}

// Accepted reports whether the verdict is VerdictAccepted.
func (v Verification) Accepted() bool { return v.Verdict == VerdictAccepted }

// Verify checks token against the window containing receivedAtMillis and the
// one before it. Windows after the current one are never computed. Matches
// older than that, up to staleWindows back, are reported as expired so the
// caller can tell a late scan from a forged one.
//
// A match on an accepted window is still reported expired when its expiry lies
// more than one interval before receivedAtMillis.
func Verify(secret Secret, token string, receivedAtMillis, intervalSeconds int64, staleWindows int) Verification {
	interval := normalize(intervalSeconds)
	if !WellFormed(token) {
		return Verification{Verdict: VerdictMismatch}
	}
	h := hash.NewHMACSHA256(secret)

	lookback := max(staleWindows, 1)
	current := WindowStart(receivedAtMillis, interval)

	for lag := 0; lag <= lookback; lag++ {
		ws := current - int64(lag)*interval
		if !h.Verify(token, message(ws)) {
			continue
		}

		if lag > 1 {
			return Verification{Verdict: VerdictExpired, WindowStart: ws, Lag: lag}
		}

		expiresMillis := WindowExpiry(ws, interval) * 1000
		if receivedAtMillis-expiresMillis > interval*1000 {
			return Verification{Verdict: VerdictExpired, WindowStart: ws, Lag: lag}
		}

		return Verification{Verdict: VerdictAccepted, WindowStart: ws, Lag: lag}
	}

	return Verification{Verdict: VerdictMismatch}
}

// WellFormed reports whether s has the shape of a token: TokenLength
// lowercase hex characters.
func WellFormed(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
