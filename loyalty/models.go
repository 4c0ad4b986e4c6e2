// Package loyalty defines the append-only points ledger and the reward catalog.
package loyalty

import (
	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

// Reason classifies why points moved.
type Reason string

const (
	ReasonPurchase     Reason = "purchase"
	ReasonSubscription Reason = "subscription"
	ReasonReferral     Reason = "referral"
	ReasonRedemption   Reason = "redemption"
	ReasonAdjustment   Reason = "adjustment" // Manual admin correction
)

// Entry is one append-only movement in a user's points ledger. Delta is
// positive for credits, negative for redemptions. Balance is the user's
// running balance after this entry, maintained atomically with the
// user's stored balance.
type Entry struct {
	types.Entity
	ID      id.LoyaltyEntryID `json:"id"`
	UserID  id.UserID         `json:"user_id"`
	Delta   int64             `json:"delta"`
	Balance int64             `json:"balance"`
	Reason  Reason            `json:"reason"`
	OrderID id.OrderID        `json:"order_id,omitempty"` // Purchase that produced the movement
	Note    string            `json:"note,omitempty"`
}

// RewardKind identifies what a redemption buys.
type RewardKind string

const (
	RewardUnlockBasic    RewardKind = "unlock_basic"    // Unlock any non-premium image
	RewardUnlockPremium  RewardKind = "unlock_premium"  // Unlock any image
	RewardDiscountSmall  RewardKind = "discount_10"     // 10% off next purchase
	RewardDiscountLarge  RewardKind = "discount_25"     // 25% off next purchase
	RewardFreeUnlockToken RewardKind = "free_unlock_token"
)

// Reward is a redeemable catalog item with a fixed point cost.
type Reward struct {
	Kind   RewardKind `json:"kind"`
	Name   string     `json:"name"`
	Points int64      `json:"points"`
}

// DefaultRewards is the built-in reward catalog.
func DefaultRewards() []Reward {
	return []Reward{
		{Kind: RewardDiscountSmall, Name: "10% discount", Points: 300},
		{Kind: RewardFreeUnlockToken, Name: "Free unlock token", Points: 400},
		{Kind: RewardUnlockBasic, Name: "Unlock any basic image", Points: 500},
		{Kind: RewardDiscountLarge, Name: "25% discount", Points: 700},
		{Kind: RewardUnlockPremium, Name: "Unlock any premium image", Points: 1200},
	}
}

// FindReward looks up a reward by kind in the given catalog.
func FindReward(catalog []Reward, kind RewardKind) (Reward, bool) {
	for _, r := range catalog {
		if r.Kind == kind {
			return r, true
		}
	}
	return Reward{}, false
}
