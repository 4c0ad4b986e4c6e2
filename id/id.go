// Package id defines TypeID-based identity types for all Vault entities.
//
// Every entity in Vault uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Vault entity types.
const (
	PrefixUser          Prefix = "user" // Account
	PrefixImage         Prefix = "img"  // Unlockable image
	PrefixCategory      Prefix = "cat"  // Image category
	PrefixOrder         Prefix = "ord"  // Purchase order
	PrefixSubscription  Prefix = "sub"  // Tier subscription
	PrefixFlashSale     Prefix = "sale" // Flash sale window
	PrefixDrip          Prefix = "drip" // Drip release schedule
	PrefixLoyaltyEntry  Prefix = "loy"  // Loyalty ledger entry
	PrefixCustomRequest Prefix = "creq" // Custom content request
	PrefixWebhookEvent  Prefix = "wevt" // Processed webhook event
	PrefixScheduledPost Prefix = "post" // Scheduled public post
)

// ID is the primary identifier type for all Vault entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "ord_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// UserID is a type-safe identifier for accounts (prefix: "user").
type UserID = ID

// ImageID is a type-safe identifier for images (prefix: "img").
type ImageID = ID

// CategoryID is a type-safe identifier for categories (prefix: "cat").
type CategoryID = ID

// OrderID is a type-safe identifier for orders (prefix: "ord").
type OrderID = ID

// SubscriptionID is a type-safe identifier for subscriptions (prefix: "sub").
type SubscriptionID = ID

// FlashSaleID is a type-safe identifier for flash sales (prefix: "sale").
type FlashSaleID = ID

// DripID is a type-safe identifier for drip schedules (prefix: "drip").
type DripID = ID

// LoyaltyEntryID is a type-safe identifier for loyalty ledger entries (prefix: "loy").
type LoyaltyEntryID = ID

// CustomRequestID is a type-safe identifier for custom requests (prefix: "creq").
type CustomRequestID = ID

// WebhookEventID is a type-safe identifier for webhook events (prefix: "wevt").
type WebhookEventID = ID

// ScheduledPostID is a type-safe identifier for scheduled posts (prefix: "post").
type ScheduledPostID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewUserID generates a new unique account ID.
func NewUserID() ID { return New(PrefixUser) }

// NewImageID generates a new unique image ID.
func NewImageID() ID { return New(PrefixImage) }

// NewCategoryID generates a new unique category ID.
func NewCategoryID() ID { return New(PrefixCategory) }

// NewOrderID generates a new unique order ID.
func NewOrderID() ID { return New(PrefixOrder) }

// NewSubscriptionID generates a new unique subscription ID.
func NewSubscriptionID() ID { return New(PrefixSubscription) }

// NewFlashSaleID generates a new unique flash sale ID.
func NewFlashSaleID() ID { return New(PrefixFlashSale) }

// NewDripID generates a new unique drip schedule ID.
func NewDripID() ID { return New(PrefixDrip) }

// NewLoyaltyEntryID generates a new unique loyalty ledger entry ID.
func NewLoyaltyEntryID() ID { return New(PrefixLoyaltyEntry) }

// NewCustomRequestID generates a new unique custom request ID.
func NewCustomRequestID() ID { return New(PrefixCustomRequest) }

// NewWebhookEventID generates a new unique webhook event ID.
func NewWebhookEventID() ID { return New(PrefixWebhookEvent) }

// NewScheduledPostID generates a new unique scheduled post ID.
func NewScheduledPostID() ID { return New(PrefixScheduledPost) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseUserID parses a string and validates the "user" prefix.
func ParseUserID(s string) (ID, error) { return ParseWithPrefix(s, PrefixUser) }

// ParseImageID parses a string and validates the "img" prefix.
func ParseImageID(s string) (ID, error) { return ParseWithPrefix(s, PrefixImage) }

// ParseCategoryID parses a string and validates the "cat" prefix.
func ParseCategoryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCategory) }

// ParseOrderID parses a string and validates the "ord" prefix.
func ParseOrderID(s string) (ID, error) { return ParseWithPrefix(s, PrefixOrder) }

// ParseSubscriptionID parses a string and validates the "sub" prefix.
func ParseSubscriptionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSubscription) }

// ParseFlashSaleID parses a string and validates the "sale" prefix.
func ParseFlashSaleID(s string) (ID, error) { return ParseWithPrefix(s, PrefixFlashSale) }

// ParseDripID parses a string and validates the "drip" prefix.
func ParseDripID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDrip) }

// ParseLoyaltyEntryID parses a string and validates the "loy" prefix.
func ParseLoyaltyEntryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLoyaltyEntry) }

// ParseCustomRequestID parses a string and validates the "creq" prefix.
func ParseCustomRequestID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCustomRequest) }

// ParseWebhookEventID parses a string and validates the "wevt" prefix.
func ParseWebhookEventID(s string) (ID, error) { return ParseWithPrefix(s, PrefixWebhookEvent) }

// ParseScheduledPostID parses a string and validates the "post" prefix.
func ParseScheduledPostID(s string) (ID, error) { return ParseWithPrefix(s, PrefixScheduledPost) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
