package catalog

import (
	"testing"

	"github.com/velora/vault/user"
)

func TestPublicSafe(t *testing.T) {
	tests := []struct {
		name string
		ct   ContentType
		safe bool
	}{
		{"private blocked", ContentPrivate, false},
		{"instagram cleared", ContentInstagram, true},
		{"zero value blocked", ContentType(""), false},
		{"unknown blocked", ContentType("public"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &Image{ContentType: tt.ct}
			if got := img.PublicSafe(); got != tt.safe {
				t.Errorf("PublicSafe with %q: got %v, want %v", tt.ct, got, tt.safe)
			}
		})
	}
}

func TestFreeUnlockable(t *testing.T) {
	tests := []struct {
		name     string
		explicit bool
		tier     user.Tier
		want     bool
	}{
		{"plain untiered", false, user.TierNone, true},
		{"bronze gate allowed", false, user.TierBronze, true},
		{"silver gate blocked", false, user.TierSilver, false},
		{"gold gate blocked", false, user.TierGold, false},
		{"explicit blocked", true, user.TierNone, false},
		{"explicit and tiered blocked", true, user.TierGold, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &Image{Explicit: tt.explicit, TierRequired: tt.tier}
			if got := img.FreeUnlockable(); got != tt.want {
				t.Errorf("FreeUnlockable: got %v, want %v", got, tt.want)
			}
		})
	}
}
