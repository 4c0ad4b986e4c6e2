package order

import (
	"errors"
	"testing"

	"github.com/velora/vault/types"
)

func TestStatusGraph(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"created to awaiting", StatusCreated, StatusAwaitingPayment, true},
		{"created to expired", StatusCreated, StatusExpired, true},
		{"created to failed", StatusCreated, StatusFailed, true},
		{"created skips to paid", StatusCreated, StatusPaid, false},
		{"created skips to fulfilled", StatusCreated, StatusFulfilled, false},
		{"awaiting to paid", StatusAwaitingPayment, StatusPaid, true},
		{"awaiting to expired", StatusAwaitingPayment, StatusExpired, true},
		{"awaiting to failed", StatusAwaitingPayment, StatusFailed, true},
		{"awaiting skips to fulfilled", StatusAwaitingPayment, StatusFulfilled, false},
		{"paid to fulfilled", StatusPaid, StatusFulfilled, true},
		{"paid cannot fail", StatusPaid, StatusFailed, false},
		{"paid cannot expire", StatusPaid, StatusExpired, false},
		{"paid cannot regress", StatusPaid, StatusAwaitingPayment, false},
		{"fulfilled is terminal", StatusFulfilled, StatusFailed, false},
		{"expired is terminal", StatusExpired, StatusAwaitingPayment, false},
		{"expired cannot be paid", StatusExpired, StatusPaid, false},
		{"failed is terminal", StatusFailed, StatusCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%s -> %s): got %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []Status{StatusFulfilled, StatusExpired, StatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	live := []Status{StatusCreated, StatusAwaitingPayment, StatusPaid}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	if Status("bogus").Terminal() {
		t.Error("unknown status should not report terminal")
	}
}

func TestTransitionStampsTimestamps(t *testing.T) {
	o := &Order{Status: StatusAwaitingPayment, Price: types.USD(1000)}

	if err := o.Transition(StatusPaid); err != nil {
		t.Fatalf("transition to paid: %v", err)
	}
	if o.PaidAt == nil {
		t.Error("PaidAt not stamped")
	}
	if o.FulfilledAt != nil {
		t.Error("FulfilledAt stamped early")
	}

	if err := o.Transition(StatusFulfilled); err != nil {
		t.Fatalf("transition to fulfilled: %v", err)
	}
	if o.FulfilledAt == nil {
		t.Error("FulfilledAt not stamped")
	}
}

func TestTransitionRejected(t *testing.T) {
	o := &Order{Status: StatusExpired}

	err := o.Transition(StatusPaid)
	if err == nil {
		t.Fatal("expected error for expired -> paid")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if o.Status != StatusExpired {
		t.Errorf("status mutated on rejected transition: %s", o.Status)
	}
}
