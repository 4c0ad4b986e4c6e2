package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/velora/vault/id"
)

// fakeVerifier accepts any payload whose auth header matches its secret.
type fakeVerifier struct {
	secret string
	event  Event
}

func (v *fakeVerifier) Verify(_ context.Context, _ []byte, headers map[string]string) (*Event, error) {
	if headers["X-Auth"] != v.secret {
		return nil, errors.New("signature mismatch")
	}
	evt := v.event
	return &evt, nil
}

// fakeStore is an in-memory webhook store.
type fakeStore struct {
	mu        sync.Mutex
	processed map[string]time.Time
	pending   map[string]*PendingEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		processed: make(map[string]time.Time),
		pending:   make(map[string]*PendingEvent),
	}
}

func (s *fakeStore) CheckAndRecord(_ context.Context, key string, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[key]; ok {
		return false, nil
	}
	s.processed[key] = time.Now().UTC()
	return true, nil
}

func (s *fakeStore) PurgeProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, at := range s.processed {
		if at.Before(cutoff) {
			delete(s.processed, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) EnqueuePending(_ context.Context, p *PendingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsNil() {
		p.ID = id.NewWebhookEventID()
	}
	s.pending[p.ID.String()] = p
	return nil
}

func (s *fakeStore) ListPending(_ context.Context, limit int) ([]*PendingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PendingEvent, 0, len(s.pending))
	for _, p := range s.pending {
		if len(out) >= limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) UpdatePending(_ context.Context, p *PendingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.ID.String()] = p
	return nil
}

func (s *fakeStore) DeletePending(_ context.Context, eventID id.WebhookEventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, eventID.String())
	return nil
}

func goodHeaders() map[string]string { return map[string]string{"X-Auth": "s3cret"} }

func newTestProcessor(t *testing.T, evt Event, retryLimit int) (*Processor, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	v := &fakeVerifier{secret: "s3cret", event: evt}
	return NewProcessor(v, store, retryLimit, nil), store
}

func TestProcessBadSignature(t *testing.T) {
	p, store := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed"}, 3)

	err := p.Process(context.Background(), []byte("{}"), map[string]string{"X-Auth": "wrong"})
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	if len(store.processed) != 0 {
		t.Error("rejected delivery must not be recorded")
	}
}

func TestProcessDispatchesOnce(t *testing.T) {
	p, _ := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed"}, 3)

	var calls int
	p.Handle("capture.completed", func(context.Context, *Event) error {
		calls++
		return nil
	})

	// First delivery processes.
	if err := p.Process(context.Background(), []byte("{}"), goodHeaders()); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Replays are acknowledged but never re-dispatched.
	for i := 0; i < 5; i++ {
		err := p.Process(context.Background(), []byte("{}"), goodHeaders())
		if !errors.Is(err, ErrDuplicateEvent) {
			t.Fatalf("replay %d: expected ErrDuplicateEvent, got %v", i, err)
		}
	}

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestProcessDuplicateCallback(t *testing.T) {
	p, _ := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed"}, 3)
	p.Handle("capture.completed", func(context.Context, *Event) error { return nil })

	var dupes int
	p.OnDuplicate = func(context.Context, *Event) { dupes++ }

	_ = p.Process(context.Background(), []byte("{}"), goodHeaders())
	_ = p.Process(context.Background(), []byte("{}"), goodHeaders())

	if dupes != 1 {
		t.Errorf("OnDuplicate called %d times, want 1", dupes)
	}
}

func TestProcessUnknownTypeAcknowledged(t *testing.T) {
	p, _ := newTestProcessor(t, Event{Key: "evt-1", Type: "something.else"}, 3)

	if err := p.Process(context.Background(), []byte("{}"), goodHeaders()); err != nil {
		t.Fatalf("unknown type should be acknowledged, got %v", err)
	}
}

func TestProcessUnmatchedQueued(t *testing.T) {
	p, store := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed", ProviderRef: "P-123"}, 3)
	p.Handle("capture.completed", func(context.Context, *Event) error {
		return ErrNoMatchingOrder
	})

	if err := p.Process(context.Background(), []byte("{}"), goodHeaders()); err != nil {
		t.Fatalf("unmatched event should be acknowledged, got %v", err)
	}
	if len(store.pending) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(store.pending))
	}
}

func TestRetryPendingResolves(t *testing.T) {
	p, store := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed", ProviderRef: "P-123"}, 3)

	matched := false
	p.Handle("capture.completed", func(_ context.Context, evt *Event) error {
		if !matched {
			return ErrNoMatchingOrder
		}
		if evt.ProviderRef != "P-123" {
			t.Errorf("retry lost provider ref: %q", evt.ProviderRef)
		}
		return nil
	})

	_ = p.Process(context.Background(), []byte("{}"), goodHeaders())

	// Order still unknown: attempt counted, event kept.
	if err := p.RetryPending(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(store.pending) != 1 {
		t.Fatalf("expected event still pending, got %d", len(store.pending))
	}

	// Order appears: retry resolves and clears the queue.
	matched = true
	if err := p.RetryPending(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(store.pending) != 0 {
		t.Errorf("expected pending queue drained, got %d", len(store.pending))
	}
}

func TestRetryPendingExhaustionFlagsReconciliation(t *testing.T) {
	p, store := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed"}, 2)
	p.Handle("capture.completed", func(context.Context, *Event) error {
		return ErrNoMatchingOrder
	})

	var flagged *PendingEvent
	p.OnReconciliation = func(_ context.Context, pe *PendingEvent) { flagged = pe }

	_ = p.Process(context.Background(), []byte("{}"), goodHeaders())

	for i := 0; i < 4; i++ {
		if err := p.RetryPending(context.Background()); err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
	}

	if flagged == nil {
		t.Fatal("expected reconciliation callback after retry exhaustion")
	}
	if flagged.Attempts != 2 {
		t.Errorf("attempts: got %d, want 2 (no attempts after flagging)", flagged.Attempts)
	}
	if len(store.pending) != 1 {
		t.Errorf("flagged event must be kept for operators, got %d pending", len(store.pending))
	}
}

func TestPurgeProcessed(t *testing.T) {
	p, store := newTestProcessor(t, Event{Key: "evt-1", Type: "capture.completed"}, 3)
	p.Handle("capture.completed", func(context.Context, *Event) error { return nil })

	_ = p.Process(context.Background(), []byte("{}"), goodHeaders())

	// Nothing is old enough yet.
	n, err := p.PurgeProcessed(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d fresh entries, want 0", n)
	}

	// Age the entry past the TTL.
	store.mu.Lock()
	store.processed["evt-1"] = time.Now().UTC().Add(-2 * time.Hour)
	store.mu.Unlock()

	n, err = p.PurgeProcessed(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
}
