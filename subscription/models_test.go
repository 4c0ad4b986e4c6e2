package subscription

import (
	"testing"
	"time"
)

func TestActiveAt(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	sub := &Subscription{Status: StatusActive, PeriodStart: start, PeriodEnd: end}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", start.Add(-time.Second), false},
		{"window start inclusive", start, true},
		{"mid window", start.AddDate(0, 0, 15), true},
		{"window end exclusive", end, false},
		{"after window", end.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sub.ActiveAt(tt.at); got != tt.want {
				t.Errorf("ActiveAt(%s): got %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	expired := &Subscription{Status: StatusExpired, PeriodStart: start, PeriodEnd: end}
	if expired.ActiveAt(start.AddDate(0, 0, 15)) {
		t.Error("expired subscription should never report active")
	}
}

func TestExpiresSoon(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := &Subscription{
		Status:      StatusActive,
		PeriodStart: now.AddDate(0, 0, -27),
		PeriodEnd:   now.Add(48 * time.Hour),
	}

	if !sub.ExpiresSoon(now, 72*time.Hour) {
		t.Error("should report expiring within 72h")
	}
	if sub.ExpiresSoon(now, 24*time.Hour) {
		t.Error("should not report expiring within 24h")
	}

	ended := &Subscription{Status: StatusActive, PeriodEnd: now.Add(-time.Hour)}
	if ended.ExpiresSoon(now, 72*time.Hour) {
		t.Error("already-ended subscription is not expiring soon")
	}
}
