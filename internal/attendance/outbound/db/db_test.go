package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDB_mapError(t *testing.T) {
	s := &DB{ins: instrument.NewNoop()}
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: goerror.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: goerror.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: goerror.ErrConflict},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, want: goerror.ErrUnavailable},
		{name: "starting up", err: &pgconn.PgError{Code: "57P03"}, want: goerror.ErrUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: goerror.ErrUnavailable},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: nil},
		{name: "other", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got := s.mapError(tt.err)

			// Assert
			switch {
			case tt.err == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.err, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}
