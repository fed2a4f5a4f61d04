package inbound

import (
	"context"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/usecase"
)

type ucConsumer interface {
	ConsumeEvent(ctx context.Context, in usecase.ConsumeEventInput) error
}

type ucStream interface {
	Subscribe(ctx context.Context, in usecase.SubscribeInput) (<-chan entity.Event, error)
}

type uc interface {
	ucConsumer
	ucStream
}
