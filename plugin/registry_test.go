package plugin

import (
	"context"
	"errors"
	"testing"
)

// recorderPlugin implements a handful of hooks and records calls.
type recorderPlugin struct {
	name      string
	paid      int
	fulfilled int
	dupes     []string
	failErr   error
}

func (p *recorderPlugin) Name() string { return p.name }

func (p *recorderPlugin) OnOrderPaid(context.Context, interface{}) error {
	p.paid++
	return p.failErr
}

func (p *recorderPlugin) OnOrderFulfilled(context.Context, interface{}) error {
	p.fulfilled++
	return nil
}

func (p *recorderPlugin) OnWebhookDuplicate(_ context.Context, _ string, key string) error {
	p.dupes = append(p.dupes, key)
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	p := &recorderPlugin{name: "recorder"}

	if err := r.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("count: got %d, want 1", r.Count())
	}

	ctx := context.Background()
	r.EmitOrderPaid(ctx, nil)
	r.EmitOrderPaid(ctx, nil)
	r.EmitOrderFulfilled(ctx, nil)
	r.EmitWebhookDuplicate(ctx, "PAYMENT.CAPTURE.COMPLETED", "evt-1")

	// Hooks the plugin doesn't implement are a no-op.
	r.EmitSafetyViolation(ctx, "img_x", "public_post")

	if p.paid != 2 {
		t.Errorf("OnOrderPaid calls: got %d, want 2", p.paid)
	}
	if p.fulfilled != 1 {
		t.Errorf("OnOrderFulfilled calls: got %d, want 1", p.fulfilled)
	}
	if len(p.dupes) != 1 || p.dupes[0] != "evt-1" {
		t.Errorf("OnWebhookDuplicate calls: got %v", p.dupes)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&recorderPlugin{name: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&recorderPlugin{name: "a"}); err == nil {
		t.Error("expected error for duplicate plugin name")
	}
}

func TestHookErrorDoesNotPropagate(t *testing.T) {
	r := NewRegistry()
	failing := &recorderPlugin{name: "failing", failErr: errors.New("boom")}
	healthy := &recorderPlugin{name: "healthy"}

	if err := r.Register(failing); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A failing plugin must not stop dispatch to the others.
	r.EmitOrderPaid(context.Background(), nil)

	if healthy.paid != 1 {
		t.Errorf("healthy plugin not called after failing one: %d", healthy.paid)
	}
}

func TestGetAndList(t *testing.T) {
	r := NewRegistry()
	p := &recorderPlugin{name: "recorder"}
	if err := r.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := r.Get("recorder"); got != p {
		t.Error("Get returned wrong plugin")
	}
	if got := r.Get("missing"); got != nil {
		t.Error("Get for unknown name should return nil")
	}
	if got := r.List(); len(got) != 1 {
		t.Errorf("List: got %d plugins, want 1", len(got))
	}
}
