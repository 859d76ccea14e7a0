// Package tracker is the client side of the conversion tracking service: it holds the
// track ID once initialized and hands stamped events to the dispatcher.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/kakaoad/internal/domain"
)

// Queue accepts events without blocking and reports whether the event was taken.
type Queue interface {
	Enqueue(ev domain.Event) bool
}

type Tracker struct {
	platform string
	queue    Queue
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu          sync.RWMutex
	trackID     string
	initialized bool
}

type Option func(*Tracker)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDFunc overrides event ID generation.
func WithIDFunc(f func() string) Option {
	return func(t *Tracker) { t.newID = f }
}

func New(platform string, queue Queue, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		platform: platform,
		queue:    queue,
		logger:   logger.With("component", "tracker", "platform", platform),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tracker) IsInitialized() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.initialized
}

// Init binds the tracker to trackID. It reports false when the tracker was already
// initialized or trackID is empty; the first successful call wins.
func (t *Tracker) Init(trackID string) bool {
	if trackID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.initialized {
		return false
	}
	t.trackID = trackID
	t.initialized = true
	t.logger.Info("tracker initialized")
	return true
}

func (t *Tracker) TrackID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trackID
}

// Send stamps ev and queues it. Before Init it does nothing.
func (t *Tracker) Send(ev domain.Event) {
	t.mu.RLock()
	trackID, ok := t.trackID, t.initialized
	t.mu.RUnlock()
	if !ok {
		t.logger.Debug("tracker not initialized, event ignored", "event", ev.Name)
		return
	}

	ev.EventID = t.newID()
	ev.TrackID = trackID
	ev.Platform = t.platform
	ev.Timestamp = t.now().UnixMilli()

	if !t.queue.Enqueue(ev) {
		t.logger.Warn("dispatch queue full, event dropped", "event", ev.Name, "event_id", ev.EventID)
	}
}
