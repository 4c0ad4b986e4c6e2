package vault_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	vault "github.com/velora/vault"
	"github.com/velora/vault/catalog"
	"github.com/velora/vault/id"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/store/memory"
	"github.com/velora/vault/types"
	"github.com/velora/vault/webhook"
)

// docProvider is a canned payment provider for the documentation
// examples below.
type docProvider struct{}

func (docProvider) CreateCheckout(_ context.Context, req provider.CheckoutRequest) (*provider.Checkout, error) {
	return &provider.Checkout{
		ProviderRef: "PP-" + req.OrderID.String(),
		ApproveURL:  "https://pay.example.com/approve/" + req.OrderID.String(),
	}, nil
}

func (docProvider) Capture(_ context.Context, providerRef string) (string, error) {
	return "CAP-" + providerRef, nil
}

// docVerifier trusts the payload as a pre-verified event envelope.
type docVerifier struct{}

func (docVerifier) Verify(_ context.Context, payload []byte, _ map[string]string) (*webhook.Event, error) {
	var evt webhook.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, vault.ErrBadSignature
	}
	return &evt, nil
}

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		st := memory.New()

		// The provider normally doubles as the verifier; the doc fakes
		// keep them separate so the flow stays visible.
		v := vault.New(st, docProvider{}, docVerifier{},
			vault.WithLogger(slog.Default()),
		)

		// Start the engine
		ctx := context.Background()
		if err := v.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer v.Stop()

		// Build a catalog
		cat := &catalog.Category{Name: "Sunsets", Active: true}
		if err := v.CreateCategory(ctx, cat); err != nil {
			t.Fatal(err)
		}

		img := &catalog.Image{
			CategoryID: cat.ID,
			Title:      "Golden Hour",
			Price:      types.USD(499), // $4.99
			Active:     true,
			StorageKey: "images/golden-hour.jpg",
		}
		if err := v.CreateImage(ctx, img); err != nil {
			t.Fatal(err)
		}

		// Register a buyer
		u, err := v.RegisterUser(ctx, "chat-1001", "ana", "Ana", id.Nil)
		if err != nil {
			t.Fatal(err)
		}

		// Checkout opens a payment and returns the approval link
		res, err := v.Checkout(ctx, u.ID, img.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.ApproveURL == "" {
			t.Fatal("expected an approval URL")
		}

		// Payment confirmation arrives over a webhook; the transport
		// layer passes the delivery straight through.
		payload, _ := json.Marshal(webhook.Event{
			Key:         "WH-doc-1",
			Type:        webhook.TypeCheckoutApproved,
			ProviderRef: res.Order.ProviderRef,
			OccurredAt:  time.Now().UTC(),
		})
		if err := v.HandleWebhook(ctx, payload, nil); err != nil {
			t.Fatal(err)
		}

		// Settlement granted ownership
		owned, err := v.Unlocks(ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(owned) != 1 {
			t.Fatalf("expected 1 unlock, got %d", len(owned))
		}

		// A redelivered event is acknowledged without effect
		if err := v.HandleWebhook(ctx, payload, nil); !errors.Is(err, vault.ErrDuplicateEvent) {
			t.Fatalf("expected duplicate event, got %v", err)
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(499)    // $4.99
		_ = types.EUR(999)    // €9.99
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		_ = m1.Add(m2)     // $3.00
		_ = m1.Multiply(3) // $3.00
		_ = m1.Divide(2)   // $0.50

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
