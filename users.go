package vault

import (
	"context"
	"fmt"

	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
)

// ──────────────────────────────────────────────────
// User Management
// ──────────────────────────────────────────────────

// RegisterUser creates an account for a chat identity. Registration is
// idempotent on ChatID: a second registration returns the existing
// account unchanged. New accounts start at the free tier with the
// welcome free-unlock grant and a unique referral share code;
// referredBy links the referrer whose bonus is paid on the referee's
// first fulfilled purchase.
func (e *Engine) RegisterUser(ctx context.Context, chatID, username, displayName string, referredBy id.UserID) (*user.User, error) {
	if chatID == "" {
		return nil, ValidationError{Field: "chat_id", Message: "required"}
	}

	if existing, err := e.store.GetUserByChatID(ctx, chatID); err == nil {
		return existing, nil
	} else if !IsNotFound(err) {
		return nil, err
	}

	u := &user.User{
		Entity:        types.NewEntity(),
		ID:            id.NewUserID(),
		ChatID:        chatID,
		Username:      username,
		DisplayName:   displayName,
		Tier:          user.TierNone,
		LifetimeSpend: types.Zero(e.cfg.MinimumPrice.Currency),
		FreeUnlocks:   e.cfg.WelcomeFreeUnlocks,
		ReferralCode:  user.NewReferralCode(),
	}
	var referrer *user.User
	if !referredBy.IsNil() {
		ref, err := e.store.GetUser(ctx, referredBy)
		if err != nil {
			if !IsNotFound(err) {
				return nil, err
			}
			// Unknown referrers are dropped, not fatal.
		} else {
			u.ReferredBy = referredBy
			referrer = ref
		}
	}

	if err := e.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("register user %s: %w", chatID, err)
	}

	if referrer != nil {
		referrer.ReferralCount++
		referrer.Touch()
		if err := e.store.UpdateUser(ctx, referrer); err != nil {
			e.logger.Error("failed to bump referral count", "referrer", referrer.ID, "error", err)
		}
	}

	e.logger.Info("user registered", "user_id", u.ID, "chat_id", chatID, "referred_by", u.ReferredBy)
	return u, nil
}

// RedeemReferralCode links the caller to the account whose share code
// they entered. A user is referred at most once and never by their own
// code; the bonus itself is paid on the referee's first fulfilled
// purchase.
func (e *Engine) RedeemReferralCode(ctx context.Context, userID id.UserID, code string) error {
	code = user.NormalizeReferralCode(code)
	if code == "" {
		return ValidationError{Field: "code", Message: "required"}
	}

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.Banned {
		return ErrUserBanned
	}
	if !u.ReferredBy.IsNil() {
		return ValidationError{Field: "code", Message: "already referred"}
	}

	referrer, err := e.store.GetUserByReferralCode(ctx, code)
	if err != nil {
		return err
	}
	if referrer.ID == userID {
		return ValidationError{Field: "code", Message: "own code"}
	}

	u.ReferredBy = referrer.ID
	u.Touch()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return err
	}

	referrer.ReferralCount++
	referrer.Touch()
	if err := e.store.UpdateUser(ctx, referrer); err != nil {
		e.logger.Error("failed to bump referral count", "referrer", referrer.ID, "error", err)
	}

	e.logger.Info("referral code redeemed", "referrer", referrer.ID, "referee", userID)
	return nil
}

// GetUser retrieves a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return e.store.GetUser(ctx, userID)
}

// GetUserByChatID retrieves a user by chat platform identity.
func (e *Engine) GetUserByChatID(ctx context.Context, chatID string) (*user.User, error) {
	return e.store.GetUserByChatID(ctx, chatID)
}

// ListUsers lists users with the given filters.
func (e *Engine) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	return e.store.ListUsers(ctx, opts)
}

// BanUser blocks a user from checkout and redemption. Existing unlocks
// are untouched.
func (e *Engine) BanUser(ctx context.Context, userID id.UserID, banned bool) error {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.Banned == banned {
		return nil
	}

	u.Banned = banned
	u.Touch()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return err
	}

	e.logger.Info("user ban updated", "user_id", userID, "banned", banned)
	return nil
}

// PointsBalance returns a user's current loyalty balance.
func (e *Engine) PointsBalance(ctx context.Context, userID id.UserID) (int64, error) {
	return e.store.PointsBalance(ctx, userID)
}

// PointsHistory lists a user's loyalty ledger entries.
func (e *Engine) PointsHistory(ctx context.Context, userID id.UserID, opts loyalty.ListOpts) ([]*loyalty.Entry, error) {
	return e.store.ListLoyaltyEntries(ctx, userID, opts)
}

// AdjustPoints applies a manual admin correction to a user's balance.
// Positive delta credits, negative debits.
func (e *Engine) AdjustPoints(ctx context.Context, userID id.UserID, delta int64, note string) (*loyalty.Entry, error) {
	if delta == 0 {
		return nil, ValidationError{Field: "delta", Message: "must be non-zero"}
	}
	if delta > 0 {
		entry, err := e.store.CreditPoints(ctx, userID, delta, loyalty.ReasonAdjustment, id.Nil, note)
		if err != nil {
			return nil, err
		}
		e.plugins.EmitPointsCredited(ctx, userID.String(), delta, entry.Balance)
		return entry, nil
	}
	entry, err := e.store.DebitPoints(ctx, userID, -delta, loyalty.ReasonAdjustment, note)
	if err != nil {
		return nil, err
	}
	e.plugins.EmitPointsRedeemed(ctx, userID.String(), -delta, entry.Balance)
	return entry, nil
}

// requireActiveUser fetches a user and rejects banned accounts.
func (e *Engine) requireActiveUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Banned {
		return nil, ErrUserBanned
	}
	return u, nil
}
