package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"example.com/kakaoad/internal/domain"
	"example.com/kakaoad/internal/sink"
)

// Ingestor queues events and writes them to a sink in batches. Writes are attempted
// once; a failed batch is logged and dropped.
type Ingestor struct {
	queue        chan domain.Event
	writer       sink.Writer
	batchMaxSize int
	batchMaxWait time.Duration
	logger       *slog.Logger
	done         chan struct{}
	startOnce    sync.Once
}

func NewIngestor(writer sink.Writer, queueMaxSize, batchMaxSize int, batchMaxWait time.Duration, logger *slog.Logger) *Ingestor {
	if queueMaxSize <= 0 {
		queueMaxSize = 1
	}
	if batchMaxSize <= 0 {
		batchMaxSize = 1
	}
	if batchMaxWait <= 0 {
		batchMaxWait = 50 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		queue:        make(chan domain.Event, queueMaxSize),
		writer:       writer,
		batchMaxSize: batchMaxSize,
		batchMaxWait: batchMaxWait,
		logger:       logger.With("component", "ingest"),
		done:         make(chan struct{}),
	}
}

// Start runs the batching loop until ctx is cancelled. The final flush uses a fresh
// context so queued events still reach the sink on shutdown.
func (ig *Ingestor) Start(ctx context.Context) {
	ig.startOnce.Do(func() { go ig.run(ctx) })
}

// Done is closed once the loop has flushed and exited.
func (ig *Ingestor) Done() <-chan struct{} { return ig.done }

func (ig *Ingestor) run(ctx context.Context) {
	defer close(ig.done)

	batch := make([]domain.Event, 0, ig.batchMaxSize)
	t := time.NewTimer(ig.batchMaxWait)
	defer t.Stop()

	resetTimer := func() {
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(ig.batchMaxWait)
	}

	flush := func(wctx context.Context) {
		if len(batch) == 0 {
			resetTimer()
			return
		}
		affected, err := ig.writer.WriteBatch(wctx, batch)
		if err != nil {
			ig.logger.Error("batch write failed", "err", err, "dropped", len(batch))
		} else {
			ig.logger.Debug("batch write ok", "written", affected, "size", len(batch))
		}
		batch = batch[:0]
		resetTimer()
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case ev := <-ig.queue:
					batch = append(batch, ev)
					if len(batch) >= ig.batchMaxSize {
						ig.flushDetached(flush)
					}
				default:
					break drain
				}
			}
			ig.flushDetached(flush)
			return
		case ev := <-ig.queue:
			batch = append(batch, ev)
			if len(batch) >= ig.batchMaxSize {
				flush(ctx)
			}
		case <-t.C:
			flush(ctx)
		}
	}
}

func (ig *Ingestor) flushDetached(flush func(context.Context)) {
	fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	flush(fctx)
}

// Enqueue hands an event to the loop without blocking. It reports false when the
// queue is full and the event was dropped.
func (ig *Ingestor) Enqueue(ev domain.Event) bool {
	select {
	case ig.queue <- ev:
		return true
	default:
		return false
	}
}
