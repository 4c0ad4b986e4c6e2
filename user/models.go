// Package user defines accounts and the loyalty tier ladder.
package user

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

// Tier is a loyalty tier. Tiers are ordered: None < Bronze < Silver < Gold.
type Tier string

const (
	TierNone   Tier = "none"
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// tierRank maps tiers onto a total order for comparisons.
var tierRank = map[Tier]int{
	TierNone:   0,
	TierBronze: 1,
	TierSilver: 2,
	TierGold:   3,
}

// Rank returns the tier's position in the ladder. Unknown tiers rank
// below TierNone.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether t is the same tier as other or higher.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// Valid reports whether t is a known tier value.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Thresholds holds the lifetime-spend amounts (in minor currency units)
// at which each tier is reached.
type Thresholds struct {
	Bronze int64
	Silver int64
	Gold   int64
}

// TierForSpend returns the tier earned by the given lifetime spend.
func TierForSpend(spend types.Money, th Thresholds) Tier {
	switch {
	case spend.Amount >= th.Gold:
		return TierGold
	case spend.Amount >= th.Silver:
		return TierSilver
	case spend.Amount >= th.Bronze:
		return TierBronze
	default:
		return TierNone
	}
}

// User is an account interacting with the catalog through the chat bot.
type User struct {
	types.Entity
	ID            id.UserID  `json:"id"`
	ChatID        string     `json:"chat_id"` // External chat platform identity
	Username      string     `json:"username,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	Tier          Tier       `json:"tier"`
	PointsBalance int64      `json:"points_balance"`
	LifetimeSpend types.Money `json:"lifetime_spend"`
	FreeUnlocks   int        `json:"free_unlocks"` // Remaining free-unlock tokens
	PendingDiscountPercent int `json:"pending_discount_percent,omitempty"` // Consumed at next checkout
	ReferralCode  string     `json:"referral_code,omitempty"` // Share code assigned at registration
	ReferralCount int64      `json:"referral_count"`          // Users who redeemed this account's code
	ReferredBy    id.UserID  `json:"referred_by,omitempty"`
	ReferralPaid  bool       `json:"referral_paid"` // Referrer bonus already granted
	Banned        bool       `json:"banned"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CanAccess reports whether the user's tier satisfies the required tier.
func (u *User) CanAccess(required Tier) bool {
	return u.Tier.AtLeast(required)
}

// referralAlphabet omits the easily confused characters (0/O, 1/I).
const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReferralCode returns an 8-character share code.
func NewReferralCode() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = referralAlphabet[int(b[i])%len(referralAlphabet)]
	}
	return string(b[:])
}

// NormalizeReferralCode maps user input onto the stored code form.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
