package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/deliver"
	"github.com/velora/vault/id"
	"github.com/velora/vault/order"
	"github.com/velora/vault/pricing"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/request"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
)

// ──────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────

// CheckoutResult is a created order waiting for payment approval.
type CheckoutResult struct {
	Order      *order.Order
	Quote      pricing.Quote
	ApproveURL string
}

// Checkout opens a payment for one image. The quote applies the best
// running flash sale, then any pending discount voucher, and floors at
// the configured minimum price. The voucher is consumed here, whether
// or not the order is eventually paid.
func (e *Engine) Checkout(ctx context.Context, userID id.UserID, imageID id.ImageID) (*CheckoutResult, error) {
	u, err := e.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	img, err := e.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if !img.Active {
		return nil, ErrImageInactive
	}
	if !u.CanAccess(img.TierRequired) {
		return nil, fmt.Errorf("%w: image needs %s, user is %s", ErrTierRequired, img.TierRequired, u.Tier)
	}

	owned, err := e.store.HasUnlock(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	now := time.Now().UTC()
	sales, err := e.store.ListRunningFlashSales(ctx, now)
	if err != nil {
		return nil, err
	}

	quote := pricing.QuoteImage(img, sales, now, e.cfg.MinimumPrice)
	if u.PendingDiscountPercent > 0 {
		quote.Final = quote.Final.ApplyPercentDiscount(u.PendingDiscountPercent).AtLeast(e.cfg.MinimumPrice)
		u.PendingDiscountPercent = 0
		u.Touch()
		if err := e.store.UpdateUser(ctx, u); err != nil {
			return nil, err
		}
	}

	ord := &order.Order{
		Entity:         types.NewEntity(),
		ID:             id.NewOrderID(),
		UserID:         userID,
		Kind:           order.ItemImage,
		ImageID:        imageID,
		Status:         order.StatusCreated,
		Price:          quote.Final,
		IdempotencyKey: id.NewOrderID().String(),
	}
	if quote.Sale != nil {
		ord.FlashSaleID = quote.Sale.ID
	}

	return e.openPayment(ctx, ord, quote, fmt.Sprintf("Unlock: %s", img.Title))
}

// CheckoutSubscription opens a payment for a monthly tier subscription
// at the configured tier price.
func (e *Engine) CheckoutSubscription(ctx context.Context, userID id.UserID, tier user.Tier) (*CheckoutResult, error) {
	u, err := e.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	price, ok := e.cfg.TierPrices[tier]
	if !ok {
		return nil, ValidationError{Field: "tier", Message: fmt.Sprintf("no subscription price for tier %q", tier)}
	}
	if sub, err := e.store.GetActiveSubscription(ctx, userID, time.Now().UTC()); err == nil && sub.Tier.AtLeast(tier) {
		return nil, fmt.Errorf("%w: already subscribed at %s", ErrAlreadyExists, sub.Tier)
	} else if err != nil && !IsNotFound(err) {
		return nil, err
	}

	ord := &order.Order{
		Entity:         types.NewEntity(),
		ID:             id.NewOrderID(),
		UserID:         u.ID,
		Kind:           order.ItemSubscription,
		Status:         order.StatusCreated,
		Price:          price,
		IdempotencyKey: id.NewOrderID().String(),
		Metadata:       map[string]string{"tier": string(tier)},
	}

	return e.openPayment(ctx, ord, pricing.Quote{Base: price, Final: price}, fmt.Sprintf("%s subscription", tier))
}

// AcceptRequest is the buyer accepting a priced custom request. It
// moves the request to accepted and opens a payment for the admin's
// price.
func (e *Engine) AcceptRequest(ctx context.Context, userID id.UserID, requestID id.CustomRequestID) (*CheckoutResult, error) {
	u, err := e.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrRequestNotFound
	}
	if !req.Status.CanTransition(request.StatusAccepted) {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
	}

	ord := &order.Order{
		Entity:         types.NewEntity(),
		ID:             id.NewOrderID(),
		UserID:         u.ID,
		Kind:           order.ItemCustomRequest,
		RequestID:      requestID,
		Status:         order.StatusCreated,
		Price:          req.Price.AtLeast(e.cfg.MinimumPrice),
		IdempotencyKey: id.NewOrderID().String(),
	}

	res, err := e.openPayment(ctx, ord, pricing.Quote{Base: req.Price, Final: ord.Price}, "Custom request")
	if err != nil {
		return nil, err
	}

	req.Status = request.StatusAccepted
	req.OrderID = ord.ID
	req.Touch()
	if err := e.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}

	return res, nil
}

// openPayment persists the order, opens the provider checkout, and
// moves the order to awaiting_payment.
func (e *Engine) openPayment(ctx context.Context, ord *order.Order, quote pricing.Quote, description string) (*CheckoutResult, error) {
	if err := e.store.CreateOrder(ctx, ord); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	e.plugins.EmitOrderCreated(ctx, ord)

	checkout, err := e.provider.CreateCheckout(ctx, provider.CheckoutRequest{
		OrderID:        ord.ID,
		Amount:         ord.Price,
		Description:    description,
		IdempotencyKey: ord.IdempotencyKey,
	})
	if err != nil {
		if failErr := ord.Transition(order.StatusFailed); failErr == nil {
			ord.FailReason = err.Error()
			if uErr := e.store.UpdateOrder(ctx, ord); uErr != nil {
				e.logger.Error("failed to record checkout failure", "order_id", ord.ID, "error", uErr)
			}
			e.plugins.EmitOrderFailed(ctx, ord, ord.FailReason)
		}
		return nil, fmt.Errorf("open checkout for order %s: %w", ord.ID, err)
	}

	ord.ProviderRef = checkout.ProviderRef
	if err := ord.Transition(order.StatusAwaitingPayment); err != nil {
		return nil, err
	}
	if err := e.store.UpdateOrder(ctx, ord); err != nil {
		return nil, err
	}

	e.logger.Info("checkout opened",
		"order_id", ord.ID, "user_id", ord.UserID, "kind", ord.Kind,
		"price", ord.Price, "provider_ref", ord.ProviderRef)

	return &CheckoutResult{Order: ord, Quote: quote, ApproveURL: checkout.ApproveURL}, nil
}

// FreeUnlock redeems one free-unlock token for an image. No order and
// no provider round-trip: the grant and delivery happen inline.
// Explicit and higher-tier content is excluded.
func (e *Engine) FreeUnlock(ctx context.Context, userID id.UserID, imageID id.ImageID) error {
	u, err := e.requireActiveUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.FreeUnlocks <= 0 {
		return ErrNoFreeUnlocks
	}

	img, err := e.store.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if !img.Active {
		return ErrImageInactive
	}
	if !img.FreeUnlockable() {
		return ErrNotFreeUnlockable
	}

	granted, err := e.store.GrantUnlock(ctx, &unlock.Unlock{
		Entity:  types.NewEntity(),
		UserID:  userID,
		ImageID: imageID,
		Source:  unlock.SourceFreeToken,
	})
	if err != nil {
		return err
	}
	if !granted {
		return ErrAlreadyOwned
	}

	u.FreeUnlocks--
	u.Touch()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return err
	}

	e.logger.Info("free unlock redeemed", "user_id", userID, "image_id", imageID, "remaining", u.FreeUnlocks)
	e.deliverUnlock(ctx, u, img, "Unlocked with a free token")
	return nil
}

// GetOrder retrieves an order by ID.
func (e *Engine) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	return e.store.GetOrder(ctx, orderID)
}

// ListOrders lists orders with the given filters.
func (e *Engine) ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error) {
	return e.store.ListOrders(ctx, opts)
}

// ActiveSubscription returns the user's subscription covering now, if any.
func (e *Engine) ActiveSubscription(ctx context.Context, userID id.UserID) (*subscription.Subscription, error) {
	return e.store.GetActiveSubscription(ctx, userID, time.Now().UTC())
}

// CancelSubscription stops the user's current subscription. By default
// the window runs out: renewal is switched off, the perks last until
// PeriodEnd, and the expiry pass downgrades the tier afterward.
// With immediate set, the window closes now and the tier is recomputed
// right away.
func (e *Engine) CancelSubscription(ctx context.Context, userID id.UserID, immediate bool) (*subscription.Subscription, error) {
	now := time.Now().UTC()

	sub, err := e.store.GetActiveSubscription(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	sub.AutoRenew = false
	sub.CanceledAt = &now
	if immediate {
		sub.Status = subscription.StatusCanceled
	}
	sub.Touch()
	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	if immediate {
		if err := e.recomputeTier(ctx, sub, now); err != nil {
			e.logger.Error("tier recompute failed", "user_id", sub.UserID, "error", err)
		}
	} else if u, err := e.store.GetUser(ctx, userID); err == nil {
		e.notify(ctx, u, fmt.Sprintf("Your %s subscription will not renew; perks last until %s.",
			sub.Tier, sub.PeriodEnd.Format("Jan 2")))
	}

	e.logger.Info("subscription canceled", "subscription_id", sub.ID, "user_id", userID, "immediate", immediate)
	return sub, nil
}

// Unlocks lists everything a user owns.
func (e *Engine) Unlocks(ctx context.Context, userID id.UserID) ([]*unlock.Unlock, error) {
	return e.store.ListUnlocks(ctx, userID)
}

// deliverUnlock sends the image to the buyer if a deliverer is wired.
func (e *Engine) deliverUnlock(ctx context.Context, u *user.User, img *catalog.Image, caption string) {
	if e.deliverer == nil {
		return
	}
	// Delivery failures are logged, not propagated: ownership is
	// already recorded and the content stays available in the library.
	msg := deliver.Unlock{ChatID: u.ChatID, Image: img, Caption: caption}
	if e.objects != nil {
		url, err := e.objects.SignedURL(ctx, img.ContentType, img.StorageKey)
		if err != nil {
			e.logger.Error("content url resolution failed", "image_id", img.ID, "error", err)
		} else {
			msg.URL = url
		}
	}
	if err := e.deliverer.DeliverUnlock(ctx, msg); err != nil {
		e.logger.Error("unlock delivery failed", "user_id", u.ID, "image_id", img.ID, "error", err)
	}
}
