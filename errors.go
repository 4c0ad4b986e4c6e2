package vault

import (
	"errors"
	"fmt"

	"github.com/velora/vault/order"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/safety"
	"github.com/velora/vault/store"
	"github.com/velora/vault/webhook"
)

// Sentinel errors for common failure scenarios. The not-found and
// conflict sentinels live in the store package, shared with every
// backend; they are re-exported here so callers can match on either
// name.
var (
	// General errors
	ErrNotFound      = store.ErrNotFound
	ErrAlreadyExists = store.ErrAlreadyExists
	ErrInvalidInput  = errors.New("vault: invalid input")
	ErrUserBanned    = errors.New("vault: user is banned")

	// Entity errors
	ErrUserNotFound         = store.ErrUserNotFound
	ErrImageNotFound        = store.ErrImageNotFound
	ErrCategoryNotFound     = store.ErrCategoryNotFound
	ErrOrderNotFound        = store.ErrOrderNotFound
	ErrSubscriptionNotFound = store.ErrSubscriptionNotFound
	ErrFlashSaleNotFound    = store.ErrFlashSaleNotFound
	ErrDripNotFound         = store.ErrDripNotFound
	ErrRequestNotFound      = store.ErrRequestNotFound
	ErrPostNotFound         = store.ErrPostNotFound

	// Purchase errors
	ErrImageInactive      = errors.New("vault: image is not for sale")
	ErrAlreadyOwned       = errors.New("vault: image already owned")
	ErrTierRequired       = errors.New("vault: content requires a higher tier")
	ErrNoFreeUnlocks      = errors.New("vault: no free unlock tokens left")
	ErrNotFreeUnlockable  = errors.New("vault: image excluded from free unlocks")
	ErrRewardNotFound     = errors.New("vault: reward not in catalog")
	ErrInsufficientPoints = store.ErrInsufficientPoints

	// Store errors
	ErrStoreNotReady = errors.New("vault: store not ready")
	ErrStoreClosed   = errors.New("vault: store is closed")

	// Webhook and lifecycle errors, shared with the subpackages that
	// produce them.
	ErrBadSignature           = webhook.ErrBadSignature
	ErrDuplicateEvent         = webhook.ErrDuplicateEvent
	ErrReconciliationRequired = webhook.ErrReconciliationRequired
	ErrInvalidTransition      = order.ErrInvalidTransition
	ErrSafetyViolation        = safety.ErrViolation
	ErrProviderUnavailable    = provider.ErrUnavailable
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("vault: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrImageNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrFlashSaleNotFound) ||
		errors.Is(err, ErrDripNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrPostNotFound)
}

// IsAuthError returns true if the error means the caller is not who
// they claim to be.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrBadSignature)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrProviderUnavailable)
}
