// Package sink defines where dispatched conversion events end up.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"example.com/kakaoad/internal/domain"
)

// Writer receives batches of events. It returns the number of events accepted.
type Writer interface {
	WriteBatch(ctx context.Context, events []domain.Event) (int64, error)
}

// Multi fans a batch out to every writer. Each writer sees the full batch; errors are
// joined and the smallest accepted count is reported.
type Multi []Writer

func (m Multi) WriteBatch(ctx context.Context, events []domain.Event) (int64, error) {
	if len(m) == 0 {
		return 0, nil
	}
	var errs []error
	accepted := int64(len(events))
	for i, w := range m {
		n, err := w.WriteBatch(ctx, events)
		if err != nil {
			errs = append(errs, fmt.Errorf("sink[%d]: %w", i, err))
		}
		if n < accepted {
			accepted = n
		}
	}
	return accepted, errors.Join(errs...)
}

// Log writes one structured log line per event.
type Log struct {
	Logger *slog.Logger
}

func (l Log) WriteBatch(ctx context.Context, events []domain.Event) (int64, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, ev := range events {
		attrs := []any{
			"event_id", ev.EventID,
			"event", ev.Name,
			"platform", ev.Platform,
			"tag", ev.Tag,
		}
		if ev.SearchString != nil {
			attrs = append(attrs, "search_string", *ev.SearchString)
		}
		if ev.ContentID != nil {
			attrs = append(attrs, "content_id", *ev.ContentID)
		}
		if p := ev.Purchase; p != nil {
			attrs = append(attrs,
				"total_quantity", p.TotalQuantity,
				"total_price", p.TotalPrice,
				"currency", p.Currency,
				"products", len(p.Products),
			)
		}
		logger.InfoContext(ctx, "conversion event", attrs...)
	}
	return int64(len(events)), nil
}
