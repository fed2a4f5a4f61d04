package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/storage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const prefix = "attendance/qr_tokens"

// Archive writes purged token audit rows to object storage as JSON documents
// under attendance/qr_tokens/<date>/.
type Archive struct {
	store   storage.Storage
	bucket  string
	presign time.Duration
	ins     instrument.Instrumentation
}

func NewArchive(store storage.Storage, bucket string, presign time.Duration, ins instrument.Instrumentation) *Archive {
	if presign <= 0 {
		presign = 15 * time.Minute
	}
	return &Archive{store: store, bucket: bucket, presign: presign, ins: ins}
}

type document struct {
	MeetingDate string       `json:"meeting_date"`
	Count       int          `json:"count"`
	Tokens      []tokenEntry `json:"tokens"`
}

type tokenEntry struct {
	ID          int64  `json:"id,string"`
	MeetingID   int64  `json:"meeting_id,string"`
	Token       string `json:"token"`
	GeneratedBy int64  `json:"generated_by,string"`
	WindowStart int64  `json:"window_start"`
	ExpiresAt   int64  `json:"expires_at"`
	Sequence    int64  `json:"sequence"`
	IsConsumed  bool   `json:"is_consumed"`
}

func (a *Archive) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return a.ins.Tracer("attendance.outbound.archive").Start(ctx, name)
}

func (a *Archive) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (a *Archive) StoreTokens(ctx context.Context, date string, tokens []entity.QRToken) (_ string, err error) {
	ctx, span := a.startSpan(ctx, "StoreTokens")
	defer func() { a.endSpan(span, err) }()

	if len(tokens) == 0 {
		return "", errors.New("archive: no tokens")
	}

	doc := document{MeetingDate: date, Count: len(tokens), Tokens: make([]tokenEntry, 0, len(tokens))}
	for _, t := range tokens {
		doc.Tokens = append(doc.Tokens, tokenEntry{
			ID:          int64(t.ID),
			MeetingID:   int64(t.MeetingID),
			Token:       t.Token,
			GeneratedBy: int64(t.GeneratedBy),
			WindowStart: t.WindowStart,
			ExpiresAt:   t.ExpiresAt,
			Sequence:    t.Sequence,
			IsConsumed:  t.IsConsumed,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	first, last := tokens[0], tokens[len(tokens)-1]
	key := path.Join(prefix, date, fmt.Sprintf("%d-%d-%d.json", first.WindowStart, last.WindowStart, first.ID))

	if _, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), storage.PutOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"meeting-date": date, "count": strconv.Itoa(len(tokens))},
	}); err != nil {
		return "", err
	}

	return key, nil
}

func (a *Archive) ListTokens(ctx context.Context, date string) (_ []usecase.ArchiveObject, err error) {
	ctx, span := a.startSpan(ctx, "ListTokens")
	defer func() { a.endSpan(span, err) }()

	objs, err := a.store.ListObjects(ctx, a.bucket, path.Join(prefix, date)+"/", 0)
	if err != nil {
		return nil, err
	}

	out := make([]usecase.ArchiveObject, 0, len(objs))
	for _, o := range objs {
		url, err := a.store.PresignGet(ctx, a.bucket, o.Key, a.presign)
		if err != nil {
			return nil, err
		}
		out = append(out, usecase.ArchiveObject{Key: o.Key, Size: o.Size, URL: url, CreatedAt: o.UpdatedAt})
	}

	return out, nil
}
