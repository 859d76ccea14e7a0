package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"example.com/kakaoad/internal/domain"
)

var insertColumns = []string{
	"event_id", "track_id", "platform", "event_name", "tag",
	"search_string", "content_id", "ts_epoch_ms", "purchase",
}

type Writer struct {
	db *DB
}

func NewWriter(db *DB) *Writer { return &Writer{db: db} }

// WriteBatch inserts the batch as one multi-row INSERT.
func (w *Writer) WriteBatch(ctx context.Context, items []domain.Event) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	sql, args, err := buildInsert(items)
	if err != nil {
		return 0, err
	}
	ct, err := w.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert conversion_events: %w", err)
	}
	return ct.RowsAffected(), nil
}

func buildInsert(items []domain.Event) (string, []any, error) {
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*len(insertColumns))

	argi := 1
	next := func(v any, cast string) string {
		args = append(args, v)
		ph := fmt.Sprintf("$%d%s", argi, cast)
		argi++
		return ph
	}

	for _, ev := range items {
		ph := make([]string, 0, len(insertColumns))
		ph = append(ph, next(ev.EventID, "::uuid"))
		ph = append(ph, next(ev.TrackID, ""))
		ph = append(ph, next(ev.Platform, ""))
		ph = append(ph, next(string(ev.Name), ""))
		ph = append(ph, next(ev.Tag, ""))

		// variant columns stay NULL for events that do not carry them
		ph = append(ph, next(ev.SearchString, ""))
		ph = append(ph, next(ev.ContentID, ""))

		ph = append(ph, next(ev.Timestamp, ""))

		if ev.Purchase == nil {
			ph = append(ph, next(nil, "::jsonb"))
		} else {
			b, err := json.Marshal(ev.Purchase)
			if err != nil {
				return "", nil, fmt.Errorf("encode purchase %s: %w", ev.EventID, err)
			}
			ph = append(ph, next(string(b), "::jsonb"))
		}

		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "INSERT INTO conversion_events (" + strings.Join(insertColumns, ",") + ") VALUES " +
		strings.Join(placeholders, ",")
	return sql, args, nil
}
