package livestatus

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/inbound"
	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/authz"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/idempotency"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
)

type Dependency struct {
	// Ctx bounds the consumers; they are not started when nil.
	Ctx         context.Context
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Idempotency idempotency.Guard          `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Authorizer  authz.Authorizer           `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	loc, err := time.LoadLocation(config.StringOr(dep.Config, "app.timezone", "Local"))
	if err != nil {
		return fmt.Errorf("livestatus: load timezone: %w", err)
	}

	instance := dep.Config.GetString("modules.livestatus.instance")
	if instance == "" {
		if instance, err = os.Hostname(); err != nil || instance == "" {
			instance = dep.UUID.Generate()
		}
	}

	uc := usecase.New(usecase.Dependency{
		Guard:      dep.Idempotency,
		Validator:  dep.Validator,
		Authorizer: dep.Authorizer,
		Config:     dep.Config,
		Clock:      dep.Clock,
		Location:   loc,
		Instrument: dep.Instrument,
		Instance:   instance,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, dep.Config, uc)
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument, instance)
	}

	return nil
}
