package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/velora/vault/catalog"
	"github.com/velora/vault/deliver"
	"github.com/velora/vault/drip"
	"github.com/velora/vault/order"
	"github.com/velora/vault/post"
	"github.com/velora/vault/safety"
	"github.com/velora/vault/subscription"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
)

// ──────────────────────────────────────────────────
// Background Jobs
// ──────────────────────────────────────────────────

// registerJobs wires the recurring work onto the scheduler.
func (e *Engine) registerJobs() error {
	jobs := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) error
	}{
		{"drip_release", e.cfg.DripInterval, e.runDripRelease},
		{"flash_sales", e.cfg.FlashSaleInterval, e.runFlashSales},
		{"subscriptions", e.cfg.SubscriptionInterval, e.runSubscriptions},
		{"public_posts", e.cfg.PostInterval, e.runPublicPosts},
		{"webhook_tick", e.cfg.WebhookTickInterval, e.runWebhookTick},
	}
	for _, j := range jobs {
		if err := e.sched.Register(j.name, j.interval, j.fn); err != nil {
			return err
		}
	}
	return nil
}

// runDripRelease delivers due drip schedules. Free-tier audiences get a
// locked preview with the current price; paying audiences get the
// content unlocked as a perk. The delivered mark is a compare-and-set,
// so overlapping ticks release each drop once.
func (e *Engine) runDripRelease(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := e.store.ListDueDrips(ctx, now)
	if err != nil {
		return err
	}

	for _, s := range due {
		fresh, err := e.store.MarkDripDelivered(ctx, s.ID, now)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}

		img, err := e.store.GetImage(ctx, s.ImageID)
		if err != nil {
			e.logger.Error("drip references missing image", "drip_id", s.ID, "image_id", s.ImageID, "error", err)
			continue
		}

		if err := e.deliverDrip(ctx, s, img); err != nil {
			e.logger.Error("drip delivery incomplete", "drip_id", s.ID, "error", err)
		}

		e.plugins.EmitDripDelivered(ctx, s)
		e.logger.Info("drip released", "drip_id", s.ID, "image_id", s.ImageID, "audience", s.AudienceTier)
	}
	return nil
}

// deliverDrip fans one released drop out to its audience, paging
// through users.
func (e *Engine) deliverDrip(ctx context.Context, s *drip.Schedule, img *catalog.Image) error {
	if e.deliverer == nil {
		return nil
	}

	const page = 500
	notBanned := false
	for offset := 0; ; offset += page {
		users, err := e.store.ListUsers(ctx, user.ListOpts{Banned: &notBanned, Limit: page, Offset: offset})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}

		for _, u := range users {
			if !u.Tier.AtLeast(s.AudienceTier) {
				continue
			}

			if s.PreviewOnly() {
				p := deliver.Preview{ChatID: u.ChatID, Image: img, Teaser: s.Teaser, Price: img.Price}
				if err := e.deliverer.DeliverPreview(ctx, p); err != nil {
					e.logger.Error("drip preview failed", "user_id", u.ID, "error", err)
				}
				continue
			}

			granted, err := e.store.GrantUnlock(ctx, &unlock.Unlock{
				Entity:  types.NewEntity(),
				UserID:  u.ID,
				ImageID: img.ID,
				Source:  unlock.SourceDripPerk,
			})
			if err != nil {
				e.logger.Error("drip grant failed", "user_id", u.ID, "error", err)
				continue
			}
			if granted {
				e.deliverUnlock(ctx, u, img, s.Teaser)
			}
		}

		if len(users) < page {
			return nil
		}
	}
}

// runFlashSales announces sales entering their window and expires the
// ones past it. The announced mark is a compare-and-set so a sale is
// announced exactly once.
func (e *Engine) runFlashSales(ctx context.Context) error {
	now := time.Now().UTC()

	running, err := e.store.ListRunningFlashSales(ctx, now)
	if err != nil {
		return err
	}
	for _, fs := range running {
		fresh, err := e.store.MarkFlashSaleAnnounced(ctx, fs.ID)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}
		e.plugins.EmitFlashSaleStarted(ctx, fs)
		e.logger.Info("flash sale started", "sale_id", fs.ID, "title", fs.Title, "discount", fs.DiscountPercent)
	}

	ended, err := e.store.ExpireEndedFlashSales(ctx, now)
	if err != nil {
		return err
	}
	for _, fs := range ended {
		e.plugins.EmitFlashSaleExpired(ctx, fs)
		e.logger.Info("flash sale ended", "sale_id", fs.ID, "title", fs.Title)
	}
	return nil
}

// runSubscriptions expires ended windows, recomputes tiers downward,
// and sends expiry notices ahead of time.
func (e *Engine) runSubscriptions(ctx context.Context) error {
	now := time.Now().UTC()

	ended, err := e.store.ExpireEndedSubscriptions(ctx, now)
	if err != nil {
		return err
	}
	for _, sub := range ended {
		e.plugins.EmitSubscriptionExpired(ctx, sub)
		if err := e.recomputeTier(ctx, sub, now); err != nil {
			e.logger.Error("tier recompute failed", "user_id", sub.UserID, "error", err)
		}
	}

	expiring, err := e.store.ListExpiringSubscriptions(ctx, now, e.cfg.SubscriptionExpiryNotice)
	if err != nil {
		return err
	}
	for _, sub := range expiring {
		// The notice is a renewal nudge; canceled windows run out quietly.
		if !sub.AutoRenew || sub.Metadata["expiry_notice_sent"] == "1" {
			continue
		}
		if u, err := e.store.GetUser(ctx, sub.UserID); err == nil {
			e.notify(ctx, u, fmt.Sprintf("Your %s subscription ends %s. Renew to keep your perks.",
				sub.Tier, sub.PeriodEnd.Format("Jan 2")))
		}
		if sub.Metadata == nil {
			sub.Metadata = make(map[string]string)
		}
		sub.Metadata["expiry_notice_sent"] = "1"
		sub.Touch()
		if err := e.store.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// recomputeTier settles a user's tier after a subscription window
// closed: the higher of the spend-earned tier and any remaining active
// subscription's tier.
func (e *Engine) recomputeTier(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	u, err := e.store.GetUser(ctx, sub.UserID)
	if err != nil {
		return err
	}

	earned := user.TierForSpend(u.LifetimeSpend, e.cfg.TierThresholds)
	if active, err := e.store.GetActiveSubscription(ctx, u.ID, now); err == nil {
		if active.Tier.Rank() > earned.Rank() {
			earned = active.Tier
		}
	} else if !IsNotFound(err) {
		return err
	}

	if earned == u.Tier {
		return nil
	}
	e.setTier(ctx, u, earned)
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	e.notify(ctx, u, fmt.Sprintf("Your subscription ended. Current tier: %s.", earned))
	return nil
}

// runPublicPosts publishes due scheduled posts. Every post passes the
// safety guard; a blocked image fails the post permanently, a
// publisher error leaves it pending for the next tick.
func (e *Engine) runPublicPosts(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := e.store.ListDuePosts(ctx, now)
	if err != nil {
		return err
	}

	for _, p := range due {
		img, err := e.store.GetImage(ctx, p.ImageID)
		if err != nil {
			e.failPost(ctx, p, fmt.Sprintf("image lookup: %v", err))
			continue
		}

		if err := safety.AssertPublicSafe(img); err != nil {
			e.plugins.EmitSafetyViolation(ctx, img.ID.String(), "public_post")
			e.failPost(ctx, p, err.Error())
			continue
		}

		if e.publisher == nil {
			e.failPost(ctx, p, "no publisher configured")
			continue
		}
		if err := e.publisher.PublishPost(ctx, img, p.Caption); err != nil {
			e.logger.Warn("publish failed, will retry", "post_id", p.ID, "error", err)
			continue
		}

		p.Status = post.StatusPosted
		p.PostedAt = &now
		p.Touch()
		if err := e.store.UpdatePost(ctx, p); err != nil {
			return err
		}
		e.logger.Info("post published", "post_id", p.ID, "image_id", p.ImageID)
	}
	return nil
}

func (e *Engine) failPost(ctx context.Context, p *post.ScheduledPost, reason string) {
	p.Status = post.StatusFailed
	p.FailReason = reason
	p.Touch()
	if err := e.store.UpdatePost(ctx, p); err != nil {
		e.logger.Error("failed to fail post", "post_id", p.ID, "error", err)
	}
	e.logger.Error("post failed", "post_id", p.ID, "reason", reason)
}

// runWebhookTick is the payment housekeeping pass: retry unmatched
// events, trim the idempotency log, expire stale orders, and re-settle
// orders stuck in paid after a crash.
func (e *Engine) runWebhookTick(ctx context.Context) error {
	if err := e.processor.RetryPending(ctx); err != nil {
		return err
	}

	if _, err := e.processor.PurgeProcessed(ctx, e.cfg.ProcessedEventTTL); err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-e.cfg.OrderExpiry)
	expired, err := e.store.ExpireStaleOrders(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, orderID := range expired {
		e.plugins.EmitOrderExpired(ctx, orderID.String())
		e.logger.Info("order expired", "order_id", orderID)
	}

	stuck, err := e.store.ListOrders(ctx, order.ListOpts{Status: order.StatusPaid, Limit: 50})
	if err != nil {
		return err
	}
	for _, ord := range stuck {
		if err := e.settle(ctx, ord); err != nil {
			e.logger.Error("re-settlement failed", "order_id", ord.ID, "error", err)
		}
	}
	return nil
}
