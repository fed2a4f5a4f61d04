// Package qrtoken derives and checks time-windowed attendance tokens.
//
// A token is the lowercase hex HMAC-SHA256 of the decimal window start
// (Unix seconds, aligned to the rotation interval) keyed by a per-session
// secret. Both the server and a display device can compute it from the shared
// secret and their own clock, so nothing has to be pushed on each rotation.
//
//	ws := qrtoken.WindowStart(nowMillis, 50)
//	tok := qrtoken.Generate(secret, nowMillis, 50)
//	res := qrtoken.Verify(secret, tok, receivedMillis, 50, 10)
//
// Everything in this package is pure: no I/O and no hidden clock reads.
package qrtoken
