package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "attendance:secret:"

// Cache keeps sealed session secrets in redis. Values are opaque to it.
type Cache struct {
	client redis.Cmdable
	ins    instrument.Instrumentation
}

func NewCache(client redis.Cmdable, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func key(id entity.MeetingID) string {
	return keyPrefix + strconv.FormatInt(int64(id), 10)
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("attendance.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Cache) GetSecret(ctx context.Context, id entity.MeetingID) (_ []byte, err error) {
	ctx, span := c.startSpan(ctx, "GetSecret")
	defer func() { c.endSpan(span, err) }()

	b, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(goerror.ErrUnavailable, err)
	}

	return b, nil
}

func (c *Cache) SetSecret(ctx context.Context, id entity.MeetingID, sealed []byte, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SetSecret")
	defer func() { c.endSpan(span, err) }()

	return c.client.Set(ctx, key(id), sealed, ttl).Err()
}

func (c *Cache) DeleteSecret(ctx context.Context, id entity.MeetingID) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteSecret")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, key(id)).Err()
}
