package tracker

import (
	"sync"
	"testing"
	"time"

	"example.com/kakaoad/internal/domain"
)

type recordingQueue struct {
	mu     sync.Mutex
	events []domain.Event
	full   bool
}

func (q *recordingQueue) Enqueue(ev domain.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.events = append(q.events, ev)
	return true
}

func TestSendBeforeInitIsInert(t *testing.T) {
	q := &recordingQueue{}
	tr := New("android", q, nil)
	tr.Send(domain.NewTagged(domain.Login, nil))
	if len(q.events) != 0 {
		t.Fatalf("expected no events before init, got %d", len(q.events))
	}
}

func TestInitOnce(t *testing.T) {
	tr := New("ios", &recordingQueue{}, nil)
	if tr.Init("") {
		t.Error("empty track id must not initialize")
	}
	if tr.IsInitialized() {
		t.Fatal("tracker should not be initialized")
	}
	if !tr.Init("first") {
		t.Error("first init should succeed")
	}
	if tr.Init("second") {
		t.Error("second init should be ignored")
	}
	if tr.TrackID() != "first" {
		t.Errorf("expected first track id to stick, got %s", tr.TrackID())
	}
}

func TestSendStampsEnvelope(t *testing.T) {
	q := &recordingQueue{}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := New("android", q, nil,
		WithClock(func() time.Time { return fixed }),
		WithIDFunc(func() string { return "id-1" }),
	)
	tr.Init("track-123")
	tr.Send(domain.NewSearch(nil, nil))

	if len(q.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(q.events))
	}
	ev := q.events[0]
	if ev.EventID != "id-1" || ev.TrackID != "track-123" || ev.Platform != "android" {
		t.Errorf("unexpected envelope: %+v", ev)
	}
	if ev.Timestamp != fixed.UnixMilli() {
		t.Errorf("expected timestamp %d, got %d", fixed.UnixMilli(), ev.Timestamp)
	}
	if ev.SearchString == nil || *ev.SearchString != "" {
		t.Errorf("payload altered: %+v", ev)
	}
}

func TestSendDefaultIDsAreUnique(t *testing.T) {
	q := &recordingQueue{}
	tr := New("android", q, nil)
	tr.Init("t")
	tr.Send(domain.NewTagged(domain.Login, nil))
	tr.Send(domain.NewTagged(domain.Login, nil))
	if q.events[0].EventID == "" || q.events[0].EventID == q.events[1].EventID {
		t.Errorf("expected distinct event ids, got %q and %q", q.events[0].EventID, q.events[1].EventID)
	}
}

func TestSendFullQueueDoesNotBlock(t *testing.T) {
	q := &recordingQueue{full: true}
	tr := New("android", q, nil)
	tr.Init("t")
	done := make(chan struct{})
	go func() {
		tr.Send(domain.NewTagged(domain.Tutorial, nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}
}
