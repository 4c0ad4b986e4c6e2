package user

import (
	"testing"

	"github.com/velora/vault/types"
)

func TestTierOrdering(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Tier
		atLeast bool
	}{
		{"gold over silver", TierGold, TierSilver, true},
		{"silver over bronze", TierSilver, TierBronze, true},
		{"bronze over none", TierBronze, TierNone, true},
		{"none below bronze", TierNone, TierBronze, false},
		{"bronze below gold", TierBronze, TierGold, false},
		{"same tier", TierSilver, TierSilver, true},
		{"unknown below none", Tier("platinum"), TierNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.AtLeast(tt.b); got != tt.atLeast {
				t.Errorf("%s.AtLeast(%s): got %v, want %v", tt.a, tt.b, got, tt.atLeast)
			}
		})
	}
}

func TestTierForSpend(t *testing.T) {
	th := Thresholds{Bronze: 2500, Silver: 7500, Gold: 15000}

	tests := []struct {
		name  string
		spend int64
		want  Tier
	}{
		{"zero", 0, TierNone},
		{"just below bronze", 2499, TierNone},
		{"bronze boundary", 2500, TierBronze},
		{"between bronze and silver", 5000, TierBronze},
		{"silver boundary", 7500, TierSilver},
		{"just below gold", 14999, TierSilver},
		{"gold boundary", 15000, TierGold},
		{"well past gold", 100000, TierGold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TierForSpend(types.USD(tt.spend), th)
			if got != tt.want {
				t.Errorf("TierForSpend(%d): got %s, want %s", tt.spend, got, tt.want)
			}
		})
	}
}

func TestCanAccess(t *testing.T) {
	u := &User{Tier: TierSilver}

	if !u.CanAccess(TierNone) {
		t.Error("silver user should access untiered content")
	}
	if !u.CanAccess(TierSilver) {
		t.Error("silver user should access silver content")
	}
	if u.CanAccess(TierGold) {
		t.Error("silver user should not access gold content")
	}
}
