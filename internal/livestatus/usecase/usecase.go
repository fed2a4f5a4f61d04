package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/authz"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/idempotency"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
)

const (
	keyBuffer    = "modules.livestatus.subscriber_buffer"
	keyDedupeTTL = "modules.livestatus.dedupe_ttl_seconds"
)

type subscriber struct {
	scope entity.Scope
	ch    chan entity.Event
}

type Usecase struct {
	guard     idempotency.Guard
	validator validator.Validator
	authz     authz.Authorizer
	clock     clock.Clocker
	location  *time.Location
	ins       instrument.Instrumentation
	instance  string
	buffer    int
	dedupeTTL time.Duration

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{} // keyed by meeting date
}

type Dependency struct {
	Guard      idempotency.Guard
	Validator  validator.Validator
	Authorizer authz.Authorizer
	Config     config.Config
	Clock      clock.Clocker
	Location   *time.Location
	Instrument instrument.Instrumentation
	// Instance separates the dedupe keys of replicas: every replica must
	// deliver each event to its own subscribers once.
	Instance string
}

func New(dep Dependency) *Usecase {
	loc := dep.Location
	if loc == nil {
		loc = time.Local
	}
	return &Usecase{
		guard:     dep.Guard,
		validator: dep.Validator,
		authz:     dep.Authorizer,
		clock:     dep.Clock,
		location:  loc,
		ins:       dep.Instrument,
		instance:  dep.Instance,
		buffer:    int(config.IntOr(dep.Config, keyBuffer, 16)),
		dedupeTTL: config.DurationOr(dep.Config.GetSecond, dep.Config, keyDedupeTTL, 10*time.Minute),
		subs:      make(map[string]map[*subscriber]struct{}),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("livestatus.usecase").Start(ctx, name)
}

// Subscribers is the number of open streams for date.
func (s *Usecase) Subscribers(date string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[date])
}

func (s *Usecase) add(sub *subscriber) {
	s.mu.Lock()
	if s.subs[sub.scope.Date] == nil {
		s.subs[sub.scope.Date] = make(map[*subscriber]struct{})
	}
	s.subs[sub.scope.Date][sub] = struct{}{}
	s.mu.Unlock()
}

func (s *Usecase) remove(sub *subscriber) {
	s.mu.Lock()
	if subs := s.subs[sub.scope.Date]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.subs, sub.scope.Date)
		}
	}
	s.mu.Unlock()
}

// broadcast never blocks: a subscriber with a full buffer misses the event.
// The send happens under the read lock so remove cannot close a channel
// that is being written.
func (s *Usecase) broadcast(ctx context.Context, evt entity.Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for sub := range s.subs[evt.MeetingDate] {
		if !sub.scope.Matches(evt) {
			continue
		}
		select {
		case sub.ch <- evt:
			sent++
		default:
			slog.WarnContext(ctx, "livestatus subscriber is slow, event dropped", "event_id", evt.ID, "date", evt.MeetingDate)
		}
	}
	return sent
}
