// Package drip defines scheduled content releases to tiered audiences.
package drip

import (
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
)

// Schedule releases one image to an audience at a point in time.
// Free-tier audiences receive a locked preview with the price; paying
// tiers receive the content itself as a perk.
type Schedule struct {
	types.Entity
	ID           id.DripID  `json:"id"`
	ImageID      id.ImageID `json:"image_id"`
	AudienceTier user.Tier  `json:"audience_tier"` // Minimum tier receiving the drop
	ReleaseAt    time.Time  `json:"release_at"`
	Teaser       string     `json:"teaser,omitempty"` // Caption for the locked preview
	Delivered    bool       `json:"delivered"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// Due reports whether the schedule should be delivered at t.
func (s *Schedule) Due(t time.Time) bool {
	return !s.Delivered && !t.Before(s.ReleaseAt)
}

// PreviewOnly reports whether the audience receives a locked preview
// rather than the full content.
func (s *Schedule) PreviewOnly() bool {
	return s.AudienceTier == user.TierNone
}
