// Package clock provides a tiny time abstraction.
//
// Token windows are derived from wall-clock milliseconds, so every component
// that computes or checks a window takes a Clocker instead of calling
// time.Now directly. Manual is the deterministic implementation used in tests.
package clock
