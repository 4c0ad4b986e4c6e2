// Package subscription defines tier subscriptions with fixed renewal windows.
package subscription

import (
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// Subscription grants a loyalty tier for a [PeriodStart, PeriodEnd)
// window. The window is fixed at activation; renewal creates a new
// window rather than mutating the old one.
type Subscription struct {
	types.Entity
	ID          id.SubscriptionID `json:"id"`
	UserID      id.UserID         `json:"user_id"`
	Tier        user.Tier         `json:"tier"`
	Status      Status            `json:"status"`
	Price       types.Money       `json:"price"` // Monthly price snapshot at activation
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	AutoRenew   bool              `json:"auto_renew"`
	OrderID     id.OrderID        `json:"order_id"`              // Purchase that activated this window
	ProviderRef string            `json:"provider_ref,omitempty"`
	CanceledAt  *time.Time        `json:"canceled_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ActiveAt reports whether the subscription window covers t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.Status == StatusActive && !t.Before(s.PeriodStart) && t.Before(s.PeriodEnd)
}

// ExpiresSoon reports whether an active subscription ends within the
// given window from t.
func (s *Subscription) ExpiresSoon(t time.Time, within time.Duration) bool {
	return s.Status == StatusActive && s.PeriodEnd.After(t) && s.PeriodEnd.Sub(t) <= within
}
