package vault_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	vault "github.com/velora/vault"
	"github.com/velora/vault/catalog"
	"github.com/velora/vault/deliver"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/promo"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/store/memory"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

// stubProvider is a scriptable payment provider.
type stubProvider struct {
	checkoutErr error
	captures    []string
}

func (p *stubProvider) CreateCheckout(_ context.Context, req provider.CheckoutRequest) (*provider.Checkout, error) {
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	return &provider.Checkout{
		ProviderRef: "PP-" + req.OrderID.String(),
		ApproveURL:  "https://pay.example.com/" + req.OrderID.String(),
	}, nil
}

func (p *stubProvider) Capture(_ context.Context, providerRef string) (string, error) {
	p.captures = append(p.captures, providerRef)
	return "CAP-" + providerRef, nil
}

// jsonVerifier treats the payload as a pre-verified event envelope.
type jsonVerifier struct{}

func (jsonVerifier) Verify(_ context.Context, payload []byte, _ map[string]string) (*webhook.Event, error) {
	var evt webhook.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

func newTestEngine(t *testing.T, opts ...vault.Option) (*vault.Engine, *stubProvider) {
	t.Helper()
	p := &stubProvider{}
	v := vault.New(memory.New(), p, jsonVerifier{}, opts...)
	return v, p
}

func seedImage(t *testing.T, v *vault.Engine, price int64, mod func(*catalog.Image)) *catalog.Image {
	t.Helper()
	ctx := context.Background()

	cat := &catalog.Category{Name: "Landscapes", Active: true}
	if err := v.CreateCategory(ctx, cat); err != nil {
		t.Fatal(err)
	}

	img := &catalog.Image{
		CategoryID: cat.ID,
		Title:      "Dunes",
		Price:      types.USD(price),
		Active:     true,
		StorageKey: "images/dunes.jpg",
	}
	if mod != nil {
		mod(img)
	}
	if err := v.CreateImage(ctx, img); err != nil {
		t.Fatal(err)
	}
	return img
}

func registerUser(t *testing.T, v *vault.Engine, chatID string) *user.User {
	t.Helper()
	u, err := v.RegisterUser(context.Background(), chatID, chatID, chatID, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// payOrder drives a capture.completed delivery for the given provider
// reference.
func payOrder(t *testing.T, v *vault.Engine, key, providerRef string) error {
	t.Helper()
	payload, err := json.Marshal(webhook.Event{
		Key:         key,
		Type:        webhook.TypeCaptureCompleted,
		ProviderRef: providerRef,
		CaptureRef:  "CAP-" + providerRef,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return v.HandleWebhook(context.Background(), payload, nil)
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)

	u, err := v.RegisterUser(ctx, "chat-1", "ana", "Ana", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if u.Tier != user.TierNone {
		t.Errorf("new user tier = %s, want %s", u.Tier, user.TierNone)
	}
	if u.FreeUnlocks != 1 {
		t.Errorf("welcome free unlocks = %d, want 1", u.FreeUnlocks)
	}

	// Same chat identity returns the existing account unchanged.
	again, err := v.RegisterUser(ctx, "chat-1", "other", "Other", id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != u.ID {
		t.Errorf("re-registration created a new user: %s vs %s", again.ID, u.ID)
	}
	if again.Username != "ana" {
		t.Errorf("re-registration changed username to %q", again.Username)
	}

	// Unknown referrer codes are dropped, not fatal.
	ref, err := v.RegisterUser(ctx, "chat-2", "bo", "Bo", id.NewUserID())
	if err != nil {
		t.Fatal(err)
	}
	if !ref.ReferredBy.IsNil() {
		t.Errorf("unknown referrer was kept: %s", ref.ReferredBy)
	}
}

func TestCheckoutGates(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive image", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, func(i *catalog.Image) { i.Active = false })
		u := registerUser(t, v, "chat-1")

		if _, err := v.Checkout(ctx, u.ID, img.ID); !errors.Is(err, vault.ErrImageInactive) {
			t.Errorf("Checkout() error = %v, want ErrImageInactive", err)
		}
	})

	t.Run("tier gate", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, func(i *catalog.Image) { i.TierRequired = user.TierGold })
		u := registerUser(t, v, "chat-1")

		if _, err := v.Checkout(ctx, u.ID, img.ID); !errors.Is(err, vault.ErrTierRequired) {
			t.Errorf("Checkout() error = %v, want ErrTierRequired", err)
		}
	})

	t.Run("banned user", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, nil)
		u := registerUser(t, v, "chat-1")
		if err := v.BanUser(ctx, u.ID, true); err != nil {
			t.Fatal(err)
		}

		if _, err := v.Checkout(ctx, u.ID, img.ID); !errors.Is(err, vault.ErrUserBanned) {
			t.Errorf("Checkout() error = %v, want ErrUserBanned", err)
		}
	})

	t.Run("already owned", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, nil)
		u := registerUser(t, v, "chat-1")

		res, err := v.Checkout(ctx, u.ID, img.ID)
		if err != nil {
			t.Fatal(err)
		}
		if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
			t.Fatal(err)
		}

		if _, err := v.Checkout(ctx, u.ID, img.ID); !errors.Is(err, vault.ErrAlreadyOwned) {
			t.Errorf("Checkout() error = %v, want ErrAlreadyOwned", err)
		}
	})

	t.Run("provider failure closes order", func(t *testing.T) {
		v, p := newTestEngine(t)
		img := seedImage(t, v, 499, nil)
		u := registerUser(t, v, "chat-1")
		p.checkoutErr = provider.ErrUnavailable

		if _, err := v.Checkout(ctx, u.ID, img.ID); !errors.Is(err, provider.ErrUnavailable) {
			t.Fatalf("Checkout() error = %v, want ErrUnavailable", err)
		}

		failed, err := v.ListOrders(ctx, order.ListOpts{UserID: u.ID, Status: order.StatusFailed})
		if err != nil {
			t.Fatal(err)
		}
		if len(failed) != 1 {
			t.Errorf("failed orders = %d, want 1", len(failed))
		}
	})
}

func TestCheckoutPricing(t *testing.T) {
	ctx := context.Background()

	t.Run("flash sale discount", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 1000, nil)
		u := registerUser(t, v, "chat-1")

		now := time.Now().UTC()
		if err := v.CreateFlashSale(ctx, &promo.FlashSale{
			Title:           "Weekend 30",
			DiscountPercent: 30,
			StartsAt:        now.Add(-time.Minute),
			EndsAt:          now.Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}

		res, err := v.Checkout(ctx, u.ID, img.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Order.Price.Amount != 700 {
			t.Errorf("sale price = %d, want 700", res.Order.Price.Amount)
		}
		if res.Quote.Sale == nil {
			t.Error("quote did not record the winning sale")
		}
	})

	t.Run("voucher consumed at checkout", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 1000, nil)
		u := registerUser(t, v, "chat-1")

		if _, err := v.AdjustPoints(ctx, u.ID, 1000, "seed"); err != nil {
			t.Fatal(err)
		}
		if err := v.RedeemReward(ctx, u.ID, loyalty.RewardDiscountSmall, id.Nil); err != nil {
			t.Fatal(err)
		}

		res, err := v.Checkout(ctx, u.ID, img.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Order.Price.Amount != 900 {
			t.Errorf("discounted price = %d, want 900", res.Order.Price.Amount)
		}

		// The voucher is spent whether or not this order is paid.
		fresh, err := v.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		if fresh.PendingDiscountPercent != 0 {
			t.Errorf("voucher still pending: %d%%", fresh.PendingDiscountPercent)
		}
	})

	t.Run("minimum price floor", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 110, nil)
		u := registerUser(t, v, "chat-1")

		now := time.Now().UTC()
		if err := v.CreateFlashSale(ctx, &promo.FlashSale{
			Title:           "Deep cut",
			DiscountPercent: 90,
			StartsAt:        now.Add(-time.Minute),
			EndsAt:          now.Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}

		res, err := v.Checkout(ctx, u.ID, img.ID)
		if err != nil {
			t.Fatal(err)
		}
		if res.Order.Price.Amount != 100 {
			t.Errorf("floored price = %d, want 100", res.Order.Price.Amount)
		}
	})
}

func TestWebhookSettlement(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)
	img := seedImage(t, v, 499, nil)
	u := registerUser(t, v, "chat-1")

	res, err := v.Checkout(ctx, u.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}

	ord, err := v.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.Status != order.StatusFulfilled {
		t.Errorf("order status = %s, want %s", ord.Status, order.StatusFulfilled)
	}

	unlocks, err := v.Unlocks(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(unlocks) != 1 || unlocks[0].ImageID != img.ID {
		t.Fatalf("unlocks = %v, want exactly the purchased image", unlocks)
	}

	// $4.99 at 10 points per dollar.
	balance, err := v.PointsBalance(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 40 {
		t.Errorf("points balance = %d, want 40", balance)
	}

	fresh, err := v.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.LifetimeSpend.Amount != 499 {
		t.Errorf("lifetime spend = %d, want 499", fresh.LifetimeSpend.Amount)
	}

	// A replayed delivery is deduplicated with no side effects.
	if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); !errors.Is(err, vault.ErrDuplicateEvent) {
		t.Fatalf("replay error = %v, want ErrDuplicateEvent", err)
	}

	// A distinct event for the same payment settles idempotently too.
	if err := payOrder(t, v, "WH-2", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}
	balance, _ = v.PointsBalance(ctx, u.ID)
	if balance != 40 {
		t.Errorf("points after redelivery = %d, want 40", balance)
	}
	unlocks, _ = v.Unlocks(ctx, u.ID)
	if len(unlocks) != 1 {
		t.Errorf("unlocks after redelivery = %d, want 1", len(unlocks))
	}
}

func TestTierUpgradeOnSpend(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)
	img := seedImage(t, v, 2500, nil)
	u := registerUser(t, v, "chat-1")

	res, err := v.Checkout(ctx, u.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}

	fresh, err := v.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Tier != user.TierBronze {
		t.Errorf("tier = %s, want %s", fresh.Tier, user.TierBronze)
	}
}

func TestReferralBonusPaidOnce(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)
	img := seedImage(t, v, 499, nil)

	referrer := registerUser(t, v, "chat-ref")
	referee, err := v.RegisterUser(ctx, "chat-new", "new", "New", referrer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if referee.ReferredBy != referrer.ID {
		t.Fatalf("referrer not linked: %s", referee.ReferredBy)
	}

	res, err := v.Checkout(ctx, referee.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}

	balance, err := v.PointsBalance(ctx, referrer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 50 {
		t.Errorf("referrer balance after first purchase = %d, want 50", balance)
	}

	// Second purchase pays no second bonus.
	img2 := &catalog.Image{
		CategoryID: img.CategoryID,
		Title:      "Second",
		Price:      types.USD(499),
		Active:     true,
		StorageKey: "images/second.jpg",
	}
	if err := v.CreateImage(ctx, img2); err != nil {
		t.Fatal(err)
	}
	res2, err := v.Checkout(ctx, referee.ID, img2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := payOrder(t, v, "WH-2", res2.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}

	balance, _ = v.PointsBalance(ctx, referrer.ID)
	if balance != 50 {
		t.Errorf("referrer balance after second purchase = %d, want 50", balance)
	}
}

func TestFreeUnlock(t *testing.T) {
	ctx := context.Background()

	t.Run("redeems one token", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, nil)
		u := registerUser(t, v, "chat-1")

		if err := v.FreeUnlock(ctx, u.ID, img.ID); err != nil {
			t.Fatal(err)
		}

		fresh, _ := v.GetUser(ctx, u.ID)
		if fresh.FreeUnlocks != 0 {
			t.Errorf("tokens left = %d, want 0", fresh.FreeUnlocks)
		}

		if err := v.FreeUnlock(ctx, u.ID, img.ID); !errors.Is(err, vault.ErrNoFreeUnlocks) {
			t.Errorf("second redemption error = %v, want ErrNoFreeUnlocks", err)
		}
	})

	t.Run("explicit content excluded", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, func(i *catalog.Image) { i.Explicit = true })
		u := registerUser(t, v, "chat-1")

		if err := v.FreeUnlock(ctx, u.ID, img.ID); !errors.Is(err, vault.ErrNotFreeUnlockable) {
			t.Errorf("FreeUnlock() error = %v, want ErrNotFreeUnlockable", err)
		}
	})
}

func TestRedeemReward(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient points", func(t *testing.T) {
		v, _ := newTestEngine(t)
		u := registerUser(t, v, "chat-1")

		err := v.RedeemReward(ctx, u.ID, loyalty.RewardFreeUnlockToken, id.Nil)
		if !errors.Is(err, vault.ErrInsufficientPoints) {
			t.Errorf("RedeemReward() error = %v, want ErrInsufficientPoints", err)
		}
	})

	t.Run("token reward grants a free unlock", func(t *testing.T) {
		v, _ := newTestEngine(t)
		u := registerUser(t, v, "chat-1")
		if _, err := v.AdjustPoints(ctx, u.ID, 400, "seed"); err != nil {
			t.Fatal(err)
		}

		if err := v.RedeemReward(ctx, u.ID, loyalty.RewardFreeUnlockToken, id.Nil); err != nil {
			t.Fatal(err)
		}

		fresh, _ := v.GetUser(ctx, u.ID)
		if fresh.FreeUnlocks != 2 {
			t.Errorf("tokens = %d, want 2 (welcome + redeemed)", fresh.FreeUnlocks)
		}
		if balance, _ := v.PointsBalance(ctx, u.ID); balance != 0 {
			t.Errorf("balance = %d, want 0", balance)
		}
	})

	t.Run("one pending voucher at a time", func(t *testing.T) {
		v, _ := newTestEngine(t)
		u := registerUser(t, v, "chat-1")
		if _, err := v.AdjustPoints(ctx, u.ID, 2000, "seed"); err != nil {
			t.Fatal(err)
		}

		if err := v.RedeemReward(ctx, u.ID, loyalty.RewardDiscountLarge, id.Nil); err != nil {
			t.Fatal(err)
		}
		err := v.RedeemReward(ctx, u.ID, loyalty.RewardDiscountSmall, id.Nil)
		var verr vault.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("second voucher error = %v, want ValidationError", err)
		}
	})

	t.Run("unlock reward", func(t *testing.T) {
		v, _ := newTestEngine(t)
		img := seedImage(t, v, 499, nil)
		u := registerUser(t, v, "chat-1")
		if _, err := v.AdjustPoints(ctx, u.ID, 500, "seed"); err != nil {
			t.Fatal(err)
		}

		if err := v.RedeemReward(ctx, u.ID, loyalty.RewardUnlockBasic, img.ID); err != nil {
			t.Fatal(err)
		}
		unlocks, _ := v.Unlocks(ctx, u.ID)
		if len(unlocks) != 1 {
			t.Fatalf("unlocks = %d, want 1", len(unlocks))
		}
	})
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)
	u := registerUser(t, v, "chat-1")

	res, err := v.CheckoutSubscription(ctx, u.ID, user.TierGold)
	if err != nil {
		t.Fatal(err)
	}
	if res.Order.Price.Amount != 3999 {
		t.Errorf("gold price = %d, want 3999", res.Order.Price.Amount)
	}

	if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}

	sub, err := v.ActiveSubscription(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Tier != user.TierGold {
		t.Errorf("subscription tier = %s, want %s", sub.Tier, user.TierGold)
	}

	fresh, _ := v.GetUser(ctx, u.ID)
	if fresh.Tier != user.TierGold {
		t.Errorf("user tier = %s, want %s", fresh.Tier, user.TierGold)
	}

	// $39.99 at 15 points per dollar.
	if balance, _ := v.PointsBalance(ctx, u.ID); balance != 585 {
		t.Errorf("points = %d, want 585", balance)
	}

	// A second checkout at the same (or lower) tier is rejected while
	// the window is open.
	if _, err := v.CheckoutSubscription(ctx, u.ID, user.TierGold); !errors.Is(err, vault.ErrAlreadyExists) {
		t.Errorf("duplicate subscription error = %v, want ErrAlreadyExists", err)
	}
}

func TestSchedulePostSafety(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)
	img := seedImage(t, v, 499, nil)

	// Private is the default classification; it never reaches a public
	// surface.
	err := v.SchedulePost(ctx, newPost(img.ID, time.Now().Add(time.Hour)))
	if !errors.Is(err, vault.ErrSafetyViolation) {
		t.Fatalf("SchedulePost() error = %v, want ErrSafetyViolation", err)
	}

	if err := v.ClassifyImage(ctx, img.ID, catalog.ContentInstagram); err != nil {
		t.Fatal(err)
	}
	if err := v.SchedulePost(ctx, newPost(img.ID, time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
}

func newPost(imageID id.ImageID, at time.Time) *post.ScheduledPost {
	return &post.ScheduledPost{ImageID: imageID, Caption: "new drop", PostAt: at}
}

func TestReferralCodes(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)

	referrer := registerUser(t, v, "chat-ref")
	referee := registerUser(t, v, "chat-new")
	if referrer.ReferralCode == "" || referee.ReferralCode == "" {
		t.Fatal("registration should assign a referral code")
	}
	if referrer.ReferralCode == referee.ReferralCode {
		t.Fatal("referral codes should be unique")
	}

	// Input is normalized before lookup.
	if err := v.RedeemReferralCode(ctx, referee.ID, "  "+referrer.ReferralCode+" "); err != nil {
		t.Fatal(err)
	}
	fresh, _ := v.GetUser(ctx, referee.ID)
	if fresh.ReferredBy != referrer.ID {
		t.Errorf("referred_by = %s, want %s", fresh.ReferredBy, referrer.ID)
	}
	ref, _ := v.GetUser(ctx, referrer.ID)
	if ref.ReferralCount != 1 {
		t.Errorf("referral count = %d, want 1", ref.ReferralCount)
	}

	// At most one referrer per account.
	third := registerUser(t, v, "chat-third")
	var verr vault.ValidationError
	if err := v.RedeemReferralCode(ctx, referee.ID, third.ReferralCode); !errors.As(err, &verr) {
		t.Errorf("second redemption error = %v, want ValidationError", err)
	}

	// Never your own code.
	if err := v.RedeemReferralCode(ctx, third.ID, third.ReferralCode); !errors.As(err, &verr) {
		t.Errorf("own-code redemption error = %v, want ValidationError", err)
	}

	// Unknown codes surface as not found.
	if err := v.RedeemReferralCode(ctx, third.ID, "NOSUCHCODE"); !errors.Is(err, vault.ErrUserNotFound) {
		t.Errorf("unknown code error = %v, want ErrUserNotFound", err)
	}

	// Registration with a known referrer counts too.
	if _, err := v.RegisterUser(ctx, "chat-fourth", "dee", "Dee", referrer.ID); err != nil {
		t.Fatal(err)
	}
	ref, _ = v.GetUser(ctx, referrer.ID)
	if ref.ReferralCount != 2 {
		t.Errorf("referral count after registration = %d, want 2", ref.ReferralCount)
	}

	// The bonus itself still waits for the referee's first purchase.
	img := seedImage(t, v, 499, nil)
	res, err := v.Checkout(ctx, referee.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := payOrder(t, v, "WH-ref", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}
	if balance, _ := v.PointsBalance(ctx, referrer.ID); balance != 50 {
		t.Errorf("referrer bonus = %d, want 50", balance)
	}
}

func TestCancelSubscription(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestEngine(t)

	t.Run("at period end", func(t *testing.T) {
		u := registerUser(t, v, "chat-1")
		res, err := v.CheckoutSubscription(ctx, u.ID, user.TierGold)
		if err != nil {
			t.Fatal(err)
		}
		if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
			t.Fatal(err)
		}

		sub, err := v.CancelSubscription(ctx, u.ID, false)
		if err != nil {
			t.Fatal(err)
		}
		if sub.AutoRenew {
			t.Error("renewal still on after cancel")
		}
		if sub.CanceledAt == nil {
			t.Error("CanceledAt not stamped")
		}
		if sub.Status != subscription.StatusActive {
			t.Errorf("status = %s, want %s", sub.Status, subscription.StatusActive)
		}

		// Perks last until the window closes.
		if _, err := v.ActiveSubscription(ctx, u.ID); err != nil {
			t.Errorf("subscription should stay active until period end: %v", err)
		}
		fresh, _ := v.GetUser(ctx, u.ID)
		if fresh.Tier != user.TierGold {
			t.Errorf("tier = %s, want %s", fresh.Tier, user.TierGold)
		}
	})

	t.Run("immediate", func(t *testing.T) {
		u := registerUser(t, v, "chat-2")
		res, err := v.CheckoutSubscription(ctx, u.ID, user.TierGold)
		if err != nil {
			t.Fatal(err)
		}
		if err := payOrder(t, v, "WH-2", res.Order.ProviderRef); err != nil {
			t.Fatal(err)
		}

		sub, err := v.CancelSubscription(ctx, u.ID, true)
		if err != nil {
			t.Fatal(err)
		}
		if sub.Status != subscription.StatusCanceled {
			t.Errorf("status = %s, want %s", sub.Status, subscription.StatusCanceled)
		}
		if _, err := v.ActiveSubscription(ctx, u.ID); !vault.IsNotFound(err) {
			t.Errorf("active subscription after immediate cancel = %v, want not found", err)
		}

		// $39.99 of lifetime spend lands at bronze.
		fresh, _ := v.GetUser(ctx, u.ID)
		if fresh.Tier != user.TierBronze {
			t.Errorf("tier after immediate cancel = %s, want %s", fresh.Tier, user.TierBronze)
		}
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		u := registerUser(t, v, "chat-3")
		if _, err := v.CancelSubscription(ctx, u.ID, false); !vault.IsNotFound(err) {
			t.Errorf("cancel without subscription = %v, want not found", err)
		}
	})
}

// recordingDeliverer keeps every unlock it was asked to send.
type recordingDeliverer struct {
	unlocks []deliver.Unlock
}

func (d *recordingDeliverer) DeliverUnlock(_ context.Context, u deliver.Unlock) error {
	d.unlocks = append(d.unlocks, u)
	return nil
}

func (d *recordingDeliverer) DeliverPreview(_ context.Context, _ deliver.Preview) error { return nil }

func (d *recordingDeliverer) Notify(_ context.Context, _, _ string) error { return nil }

// cdnObjects resolves storage keys to namespaced URLs.
type cdnObjects struct{}

func (cdnObjects) SignedURL(_ context.Context, ct catalog.ContentType, key string) (string, error) {
	return "https://cdn.example.com/" + string(ct) + "/" + key, nil
}

func TestUnlockDeliveryResolvesContentURL(t *testing.T) {
	ctx := context.Background()
	d := &recordingDeliverer{}
	v, _ := newTestEngine(t, vault.WithDeliverer(d), vault.WithObjectStore(cdnObjects{}))

	img := seedImage(t, v, 499, nil)
	u := registerUser(t, v, "chat-1")
	res, err := v.Checkout(ctx, u.ID, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := payOrder(t, v, "WH-1", res.Order.ProviderRef); err != nil {
		t.Fatal(err)
	}

	if len(d.unlocks) != 1 {
		t.Fatalf("unlock deliveries = %d, want 1", len(d.unlocks))
	}
	want := "https://cdn.example.com/private/images/dunes.jpg"
	if d.unlocks[0].URL != want {
		t.Errorf("unlock URL = %q, want %q", d.unlocks[0].URL, want)
	}
}
