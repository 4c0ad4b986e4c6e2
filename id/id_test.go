package id_test

import (
	"strings"
	"testing"

	"github.com/velora/vault/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"UserID", id.NewUserID, "user_"},
		{"ImageID", id.NewImageID, "img_"},
		{"CategoryID", id.NewCategoryID, "cat_"},
		{"OrderID", id.NewOrderID, "ord_"},
		{"SubscriptionID", id.NewSubscriptionID, "sub_"},
		{"FlashSaleID", id.NewFlashSaleID, "sale_"},
		{"DripID", id.NewDripID, "drip_"},
		{"LoyaltyEntryID", id.NewLoyaltyEntryID, "loy_"},
		{"CustomRequestID", id.NewCustomRequestID, "creq_"},
		{"WebhookEventID", id.NewWebhookEventID, "wevt_"},
		{"ScheduledPostID", id.NewScheduledPostID, "post_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixOrder)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixOrder {
		t.Errorf("expected prefix %q, got %q", id.PrefixOrder, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"UserID", id.NewUserID, id.ParseUserID},
		{"ImageID", id.NewImageID, id.ParseImageID},
		{"CategoryID", id.NewCategoryID, id.ParseCategoryID},
		{"OrderID", id.NewOrderID, id.ParseOrderID},
		{"SubscriptionID", id.NewSubscriptionID, id.ParseSubscriptionID},
		{"FlashSaleID", id.NewFlashSaleID, id.ParseFlashSaleID},
		{"DripID", id.NewDripID, id.ParseDripID},
		{"LoyaltyEntryID", id.NewLoyaltyEntryID, id.ParseLoyaltyEntryID},
		{"CustomRequestID", id.NewCustomRequestID, id.ParseCustomRequestID},
		{"WebhookEventID", id.NewWebhookEventID, id.ParseWebhookEventID},
		{"ScheduledPostID", id.NewScheduledPostID, id.ParseScheduledPostID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseUserID rejects img_", id.NewImageID().String(), id.ParseUserID},
		{"ParseImageID rejects cat_", id.NewCategoryID().String(), id.ParseImageID},
		{"ParseCategoryID rejects ord_", id.NewOrderID().String(), id.ParseCategoryID},
		{"ParseOrderID rejects sub_", id.NewSubscriptionID().String(), id.ParseOrderID},
		{"ParseSubscriptionID rejects sale_", id.NewFlashSaleID().String(), id.ParseSubscriptionID},
		{"ParseFlashSaleID rejects drip_", id.NewDripID().String(), id.ParseFlashSaleID},
		{"ParseDripID rejects loy_", id.NewLoyaltyEntryID().String(), id.ParseDripID},
		{"ParseLoyaltyEntryID rejects creq_", id.NewCustomRequestID().String(), id.ParseLoyaltyEntryID},
		{"ParseCustomRequestID rejects wevt_", id.NewWebhookEventID().String(), id.ParseCustomRequestID},
		{"ParseWebhookEventID rejects post_", id.NewScheduledPostID().String(), id.ParseWebhookEventID},
		{"ParseScheduledPostID rejects user_", id.NewUserID().String(), id.ParseScheduledPostID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewUserID(),
		id.NewImageID(),
		id.NewCategoryID(),
		id.NewOrderID(),
		id.NewSubscriptionID(),
		id.NewFlashSaleID(),
		id.NewDripID(),
		id.NewLoyaltyEntryID(),
		id.NewCustomRequestID(),
		id.NewWebhookEventID(),
		id.NewScheduledPostID(),
	}

	for _, i := range ids {
		t.Run(i.String(), func(t *testing.T) {
			parsed, err := id.ParseAny(i.String())
			if err != nil {
				t.Fatalf("ParseAny(%q) failed: %v", i.String(), err)
			}
			if parsed.String() != i.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), i.String())
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	i := id.NewOrderID()
	parsed, err := id.ParseWithPrefix(i.String(), id.PrefixOrder)
	if err != nil {
		t.Fatalf("ParseWithPrefix failed: %v", err)
	}
	if parsed.String() != i.String() {
		t.Errorf("mismatch: %q != %q", parsed.String(), i.String())
	}

	_, err = id.ParseWithPrefix(i.String(), id.PrefixImage)
	if err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewOrderID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewSubscriptionID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewOrderID()
	b := id.NewOrderID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewOrderID() calls returned the same ID: %q", a.String())
	}
}
