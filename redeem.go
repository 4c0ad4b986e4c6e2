package vault

import (
	"context"
	"fmt"

	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/types"
	"github.com/velora/vault/unlock"
	"github.com/velora/vault/user"
)

// ──────────────────────────────────────────────────
// Reward Redemption
// ──────────────────────────────────────────────────

// Rewards returns the redeemable catalog.
func (e *Engine) Rewards() []loyalty.Reward {
	out := make([]loyalty.Reward, len(e.rewards))
	copy(out, e.rewards)
	return out
}

// RedeemReward spends points on a catalog reward. Unlock rewards take
// the target image in imageID; the other kinds ignore it.
//
// The debit is atomic with the balance check, so concurrent
// redemptions cannot overspend. All validation runs before the debit;
// the granted effect follows it.
func (e *Engine) RedeemReward(ctx context.Context, userID id.UserID, kind loyalty.RewardKind, imageID id.ImageID) error {
	u, err := e.requireActiveUser(ctx, userID)
	if err != nil {
		return err
	}

	reward, ok := loyalty.FindReward(e.rewards, kind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrRewardNotFound, kind)
	}

	switch kind {
	case loyalty.RewardUnlockBasic, loyalty.RewardUnlockPremium:
		return e.redeemUnlock(ctx, u, reward, imageID)
	case loyalty.RewardFreeUnlockToken:
		if err := e.debitReward(ctx, u, reward); err != nil {
			return err
		}
		u.FreeUnlocks++
		u.Touch()
		return e.store.UpdateUser(ctx, u)
	case loyalty.RewardDiscountSmall, loyalty.RewardDiscountLarge:
		if u.PendingDiscountPercent > 0 {
			return ValidationError{Field: "reward", Message: "a discount voucher is already pending"}
		}
		if err := e.debitReward(ctx, u, reward); err != nil {
			return err
		}
		u.PendingDiscountPercent = discountPercent(kind)
		u.Touch()
		return e.store.UpdateUser(ctx, u)
	default:
		return fmt.Errorf("%w: %q", ErrRewardNotFound, kind)
	}
}

// redeemUnlock spends points to unlock a specific image. The basic
// reward is limited to non-explicit, lower-tier content; the premium
// reward unlocks anything active.
func (e *Engine) redeemUnlock(ctx context.Context, u *user.User, reward loyalty.Reward, imageID id.ImageID) error {
	if imageID.IsNil() {
		return ValidationError{Field: "image_id", Message: "required for unlock rewards"}
	}

	img, err := e.store.GetImage(ctx, imageID)
	if err != nil {
		return err
	}
	if !img.Active {
		return ErrImageInactive
	}
	if reward.Kind == loyalty.RewardUnlockBasic && !img.FreeUnlockable() {
		return fmt.Errorf("%w: image needs the premium reward", ErrNotFreeUnlockable)
	}

	owned, err := e.store.HasUnlock(ctx, u.ID, imageID)
	if err != nil {
		return err
	}
	if owned {
		return ErrAlreadyOwned
	}

	if err := e.debitReward(ctx, u, reward); err != nil {
		return err
	}

	granted, err := e.store.GrantUnlock(ctx, &unlock.Unlock{
		Entity:  types.NewEntity(),
		UserID:  u.ID,
		ImageID: imageID,
		Source:  unlock.SourceReward,
	})
	if err != nil {
		return err
	}
	if granted {
		e.deliverUnlock(ctx, u, img, fmt.Sprintf("Redeemed for %d points", reward.Points))
	}
	return nil
}

// debitReward spends the reward's point cost and emits the movement.
func (e *Engine) debitReward(ctx context.Context, u *user.User, reward loyalty.Reward) error {
	entry, err := e.store.DebitPoints(ctx, u.ID, reward.Points, loyalty.ReasonRedemption, string(reward.Kind))
	if err != nil {
		return err
	}

	u.PointsBalance = entry.Balance
	e.plugins.EmitPointsRedeemed(ctx, u.ID.String(), reward.Points, entry.Balance)
	e.logger.Info("reward redeemed", "user_id", u.ID, "reward", reward.Kind, "points", reward.Points, "balance", entry.Balance)
	return nil
}

func discountPercent(kind loyalty.RewardKind) int {
	if kind == loyalty.RewardDiscountLarge {
		return 25
	}
	return 10
}
