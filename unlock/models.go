// Package unlock records which user owns which image.
//
// Grants are idempotent on (user, image): settling the same order twice
// produces one row, which is what makes webhook replay safe at the
// entitlement layer.
package unlock

import (
	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

// Source records how an unlock was obtained.
type Source string

const (
	SourcePurchase  Source = "purchase"
	SourceFreeToken Source = "free_token"
	SourceReward    Source = "reward"    // Points redemption
	SourceDripPerk  Source = "drip_perk" // Delivered to a paying tier
	SourceAdmin     Source = "admin"
)

// Unlock is one ownership grant.
type Unlock struct {
	types.Entity
	UserID  id.UserID  `json:"user_id"`
	ImageID id.ImageID `json:"image_id"`
	OrderID id.OrderID `json:"order_id,omitempty"`
	Source  Source     `json:"source"`
}
