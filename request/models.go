// Package request defines custom content requests.
package request

import (
	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusPriced    Status = "priced"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusDelivered Status = "delivered"
)

// allowedTransitions is the request workflow: an admin prices a
// submission, the buyer accepts (which creates an order) or the admin
// rejects, and delivery closes it out.
var allowedTransitions = map[Status][]Status{
	StatusSubmitted: {StatusPriced, StatusRejected},
	StatusPriced:    {StatusAccepted, StatusRejected},
	StatusAccepted:  {StatusDelivered, StatusRejected},
	StatusRejected:  {},
	StatusDelivered: {},
}

// CanTransition reports whether the move from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CustomRequest is a buyer's ask for bespoke content. Price is set by
// an admin; acceptance creates a normal order that pays for it.
type CustomRequest struct {
	types.Entity
	ID          id.CustomRequestID `json:"id"`
	UserID      id.UserID          `json:"user_id"`
	Description string             `json:"description"`
	Status      Status             `json:"status"`
	Price       types.Money        `json:"price,omitempty"` // Set when priced
	AdminNote   string             `json:"admin_note,omitempty"`
	OrderID     id.OrderID         `json:"order_id,omitempty"` // Order created on acceptance
	ResultImage id.ImageID         `json:"result_image,omitempty"`
}
