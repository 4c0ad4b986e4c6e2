package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/order"
	"github.com/velora/vault/request"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
)

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// settle fulfills a paid order: ownership grants, loyalty accounting,
// tier recomputation, referral bonus, delivery.
//
// Every grant and credit runs before the paid→fulfilled compare-and-set
// and is idempotent on the order: a transient failure leaves the order
// paid, the recovery job re-runs settle, and the replays are absorbed.
// The compare-and-set is the exactly-once gate for what follows it
// (delivery, notifications, the fulfilled hook): the first caller to
// win it runs those, every other caller sees ErrInvalidTransition on an
// already-fulfilled order and returns without side effects.
func (e *Engine) settle(ctx context.Context, ord *order.Order) error {
	now := time.Now().UTC()

	u, err := e.store.GetUser(ctx, ord.UserID)
	if err != nil {
		return err
	}

	var (
		grantedImage bool
		img          *catalog.Image
		sub          *subscription.Subscription
		activated    bool
	)
	switch ord.Kind {
	case order.ItemImage:
		granted, err := e.store.GrantUnlock(ctx, &unlock.Unlock{
			Entity:  types.NewEntity(),
			UserID:  ord.UserID,
			ImageID: ord.ImageID,
			OrderID: ord.ID,
			Source:  unlock.SourcePurchase,
		})
		if err != nil {
			return fmt.Errorf("grant unlock for order %s: %w", ord.ID, err)
		}
		grantedImage = granted
		if img, err = e.store.GetImage(ctx, ord.ImageID); err != nil {
			e.logger.Error("settled order references missing image", "order_id", ord.ID, "image_id", ord.ImageID, "error", err)
			img = nil
		}

	case order.ItemSubscription:
		if sub, activated, err = e.ensureSubscription(ctx, u, ord, now); err != nil {
			return err
		}
		// Raising, never lowering: converges under replay.
		if sub.Tier.Rank() > u.Tier.Rank() {
			e.setTier(ctx, u, sub.Tier)
		}

	case order.ItemCustomRequest:
		// Nothing to grant until the admin delivers the result.

	default:
		return fmt.Errorf("settle order %s: unknown kind %q", ord.ID, ord.Kind)
	}

	if err := e.applyEarnings(ctx, u, ord); err != nil {
		return err
	}

	if err := e.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user after settling order %s: %w", ord.ID, err)
	}

	if err := e.store.FulfillOrder(ctx, ord.ID, now); err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			current, getErr := e.store.GetOrder(ctx, ord.ID)
			if getErr == nil && current.Status == order.StatusFulfilled {
				return nil // someone else settled it
			}
		}
		return fmt.Errorf("fulfill order %s: %w", ord.ID, err)
	}
	ord.Status = order.StatusFulfilled
	ord.FulfilledAt = &now

	switch ord.Kind {
	case order.ItemImage:
		if img != nil {
			if grantedImage {
				img.TotalSales++
				img.Touch()
				if err := e.store.UpdateImage(ctx, img); err != nil {
					e.logger.Error("failed to bump image sales", "image_id", img.ID, "error", err)
				}
			}
			e.deliverUnlock(ctx, u, img, "Unlocked! Enjoy.")
		}

	case order.ItemSubscription:
		if activated {
			e.plugins.EmitSubscriptionActivated(ctx, sub)
		}
		e.notify(ctx, u, fmt.Sprintf("Your %s subscription is active until %s.", sub.Tier, sub.PeriodEnd.Format("Jan 2")))

	case order.ItemCustomRequest:
		e.notify(ctx, u, "Payment received. Your custom request is in the queue.")
	}

	e.plugins.EmitOrderFulfilled(ctx, ord)
	e.logger.Info("order settled", "order_id", ord.ID, "user_id", u.ID, "kind", ord.Kind, "price", ord.Price)
	return nil
}

// ensureSubscription activates the subscription window an order paid
// for. Idempotent on the order: a replay finds the window created by an
// earlier attempt and returns it with activated false.
func (e *Engine) ensureSubscription(ctx context.Context, u *user.User, ord *order.Order, now time.Time) (*subscription.Subscription, bool, error) {
	tier := user.Tier(ord.Metadata["tier"])
	if !tier.Valid() || tier == user.TierNone {
		return nil, false, fmt.Errorf("settle order %s: bad subscription tier %q", ord.ID, ord.Metadata["tier"])
	}

	existing, err := e.store.ListSubscriptions(ctx, subscription.ListOpts{UserID: u.ID})
	if err != nil {
		return nil, false, err
	}
	for _, s := range existing {
		if s.OrderID == ord.ID {
			return s, false, nil
		}
	}

	sub := &subscription.Subscription{
		Entity:      types.NewEntity(),
		ID:          id.NewSubscriptionID(),
		UserID:      u.ID,
		Tier:        tier,
		Status:      subscription.StatusActive,
		Price:       ord.Price,
		PeriodStart: now,
		PeriodEnd:   now.Add(e.cfg.SubscriptionPeriod),
		AutoRenew:   true,
		OrderID:     ord.ID,
		ProviderRef: ord.ProviderRef,
	}
	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		return nil, false, fmt.Errorf("activate subscription for order %s: %w", ord.ID, err)
	}
	return sub, true, nil
}

// applyEarnings credits loyalty points at the order's rate per major
// currency unit, adds to lifetime spend, recomputes the tier, and pays
// the referral bonus on the referee's first fulfilled purchase. The
// order's ledger entry is the idempotency marker: a replay that finds
// it skips the whole block. Caller persists u.
func (e *Engine) applyEarnings(ctx context.Context, u *user.User, ord *order.Order) error {
	prior, err := e.store.ListLoyaltyEntries(ctx, u.ID, loyalty.ListOpts{OrderID: ord.ID, Limit: 1})
	if err != nil {
		return fmt.Errorf("check earnings for order %s: %w", ord.ID, err)
	}
	if len(prior) > 0 {
		return nil
	}

	points := ord.Price.Amount / 100 * pointsPerUnit(e.cfg, ord.Kind)
	if points > 0 {
		entry, err := e.store.CreditPoints(ctx, u.ID, points, earnReason(ord.Kind), ord.ID, "")
		if err != nil {
			return fmt.Errorf("credit points for order %s: %w", ord.ID, err)
		}
		u.PointsBalance = entry.Balance
		e.plugins.EmitPointsCredited(ctx, u.ID.String(), points, entry.Balance)
	}

	if u.LifetimeSpend.Currency == "" {
		u.LifetimeSpend = types.Zero(ord.Price.Currency)
	}
	u.LifetimeSpend = u.LifetimeSpend.Add(ord.Price)
	u.Touch()

	// Spend tiers only move up; downgrades happen on subscription
	// expiry, never from spending.
	if earned := user.TierForSpend(u.LifetimeSpend, e.cfg.TierThresholds); earned.Rank() > u.Tier.Rank() {
		e.setTier(ctx, u, earned)
	}

	e.payReferralBonus(ctx, u)
	return nil
}

func pointsPerUnit(cfg Config, kind order.ItemKind) int64 {
	if kind == order.ItemSubscription {
		return cfg.PointsPerUnitSubscription
	}
	return cfg.PointsPerUnitImage
}

// payReferralBonus credits the referrer once, on the referee's first
// fulfilled purchase.
func (e *Engine) payReferralBonus(ctx context.Context, u *user.User) {
	if u.ReferredBy.IsNil() || u.ReferralPaid {
		return
	}

	entry, err := e.store.CreditPoints(ctx, u.ReferredBy, e.cfg.ReferralBonusPoints, loyalty.ReasonReferral, id.Nil,
		fmt.Sprintf("referral of %s", u.ID))
	if err != nil {
		e.logger.Error("failed to pay referral bonus", "referrer", u.ReferredBy, "referee", u.ID, "error", err)
		return
	}

	u.ReferralPaid = true
	e.plugins.EmitPointsCredited(ctx, u.ReferredBy.String(), e.cfg.ReferralBonusPoints, entry.Balance)
	e.logger.Info("referral bonus paid", "referrer", u.ReferredBy, "referee", u.ID, "points", e.cfg.ReferralBonusPoints)
}

// setTier changes a user's tier in memory and emits the change. Caller
// persists u.
func (e *Engine) setTier(ctx context.Context, u *user.User, tier user.Tier) {
	old := u.Tier
	u.Tier = tier
	u.Touch()
	e.plugins.EmitTierChanged(ctx, u.ID.String(), string(old), string(tier))
	e.logger.Info("tier changed", "user_id", u.ID, "from", old, "to", tier)
}

// notify sends a chat message if a deliverer is wired. Failures are
// logged only.
func (e *Engine) notify(ctx context.Context, u *user.User, message string) {
	if e.deliverer == nil {
		return
	}
	if err := e.deliverer.Notify(ctx, u.ChatID, message); err != nil {
		e.logger.Error("notification failed", "user_id", u.ID, "error", err)
	}
}

func earnReason(kind order.ItemKind) loyalty.Reason {
	if kind == order.ItemSubscription {
		return loyalty.ReasonSubscription
	}
	return loyalty.ReasonPurchase
}

// DeliverRequest closes out a paid custom request: the admin attaches
// the produced image, the buyer gets it unlocked and delivered.
func (e *Engine) DeliverRequest(ctx context.Context, requestID id.CustomRequestID, imageID id.ImageID) error {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Status.CanTransition(request.StatusDelivered) {
		return fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}

	img, err := e.store.GetImage(ctx, imageID)
	if err != nil {
		return err
	}

	if _, err := e.store.GrantUnlock(ctx, &unlock.Unlock{
		Entity:  types.NewEntity(),
		UserID:  req.UserID,
		ImageID: imageID,
		OrderID: req.OrderID,
		Source:  unlock.SourcePurchase,
	}); err != nil {
		return err
	}

	req.Status = request.StatusDelivered
	req.ResultImage = imageID
	req.Touch()
	if err := e.store.UpdateRequest(ctx, req); err != nil {
		return err
	}

	if u, err := e.store.GetUser(ctx, req.UserID); err == nil {
		e.deliverUnlock(ctx, u, img, "Your custom request is ready.")
	}

	e.logger.Info("custom request delivered", "request_id", requestID, "image_id", imageID)
	return nil
}
