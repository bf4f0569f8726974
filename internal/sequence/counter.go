// Package sequence numbers the events of each aggregate, backed by the
// event_sequence table.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Stream names a family of events. Numbers are counted per aggregate within
// a stream, so the events of one order are numbered 1, 2, 3 and so on.
type Stream string

const Orders Stream = "order"

var ErrMissingKey = errors.New("sequence: stream and aggregate id are required")

type Store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Counter struct {
	store Store
}

func NewCounter(store Store) *Counter {
	return &Counter{store: store}
}

// Key is the event_sequence partition key of an aggregate.
func Key(stream Stream, aggregateID string) string {
	return string(stream) + "/" + aggregateID
}

// Next reserves the next number for aggregateID. The upsert row-locks the
// partition, so concurrent publishers of one order never share a number.
func (c *Counter) Next(ctx context.Context, stream Stream, aggregateID string) (int64, error) {
	if stream == "" || aggregateID == "" {
		return 0, ErrMissingKey
	}
	var seq int64
	err := c.store.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, Key(stream, aggregateID)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence for %s: %w", stream, aggregateID, err)
	}
	return seq, nil
}
