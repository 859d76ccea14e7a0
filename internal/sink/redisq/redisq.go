// Package redisq publishes conversion events to a Redis list as msgpack records.
package redisq

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"example.com/kakaoad/internal/domain"
)

// DefaultQueue is the list key used when none is configured.
const DefaultQueue = "kakaoad_conversion_events"

type Publisher struct {
	rdb   redis.UniversalClient
	queue string
}

// Connect parses a redis:// URL and returns a publisher for the given list key.
func Connect(url, queue string) (*Publisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opt), queue), nil
}

func New(rdb redis.UniversalClient, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// WriteBatch pushes every event with a single RPUSH so batch order is kept.
func (p *Publisher) WriteBatch(ctx context.Context, events []domain.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	vals := make([]interface{}, 0, len(events))
	for i := range events {
		b, err := msgpack.Marshal(&events[i])
		if err != nil {
			return 0, fmt.Errorf("msgpack encode %s: %w", events[i].EventID, err)
		}
		vals = append(vals, b)
	}
	if err := p.rdb.RPush(ctx, p.queue, vals...).Err(); err != nil {
		return 0, fmt.Errorf("rpush %s: %w", p.queue, err)
	}
	return int64(len(events)), nil
}

func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}
