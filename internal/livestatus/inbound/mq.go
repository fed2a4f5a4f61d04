package inbound

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/event"
)

type consumer struct {
	name    string
	topic   string // destination where the attendance module publishes
	handler messaging.Handler
}

// RegisterMQConsumer starts one consumer per attendance destination. The
// consumer name carries instance so every replica receives every event.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
	instance string,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.livestatus.consumer_names")
	name := event.ConsumerLivestatus + "_" + instance

	consumers := []consumer{
		{name: event.SessionStartedDestination, topic: event.SessionStartedDestination, handler: mqHandler.SessionStarted},
		{name: event.SessionStoppedDestination, topic: event.SessionStoppedDestination, handler: mqHandler.SessionStopped},
		{name: event.ScanRecordedDestination, topic: event.ScanRecordedDestination, handler: mqHandler.ScanRecorded},
	}

	active := lo.Filter(consumers, func(c consumer, _ int) bool {
		return len(enabled) == 0 || lo.Contains(enabled, c.name)
	})

	for _, consumer := range active {
		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name, "group", name)
			err := messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithChannel(name),
				messaging.WithQueueGroup(name),
				messaging.WithGroup(name),
				messaging.WithSubscription(name+"_"+consumer.topic),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(4),
				messaging.WithMaxInFlight(16),
			)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
}
