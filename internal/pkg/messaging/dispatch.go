package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/stacktrace"
)

// acker is embedded by driver messages so Ack/Nack run at most once between
// them, whether the handler responded itself or auto-ack did.
type acker struct {
	responded atomic.Bool
}

func (a *acker) claim() bool { return !a.responded.Swap(true) }

func (a *acker) done() bool { return a.responded.Load() }

type respondable interface {
	Message
	done() bool
}

// dispatch runs handler with panic recovery and applies auto-ack.
func dispatch(ctx context.Context, driver string, handler Handler, msg respondable, autoAck bool) error {
	herr := callHandler(ctx, driver, handler, msg)
	if !autoAck || msg.done() {
		return herr
	}
	if herr != nil {
		return msg.Nack(ctx)
	}
	return msg.Ack(ctx)
}

func callHandler(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return handler(ctx, msg)
}
