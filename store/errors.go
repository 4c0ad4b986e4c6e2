package store

import "errors"

// Sentinel errors shared by every backend. The root package re-exports
// them, so callers can match on either name.
var (
	ErrNotFound      = errors.New("vault: not found")
	ErrAlreadyExists = errors.New("vault: already exists")

	ErrUserNotFound         = errors.New("vault: user not found")
	ErrImageNotFound        = errors.New("vault: image not found")
	ErrCategoryNotFound     = errors.New("vault: category not found")
	ErrOrderNotFound        = errors.New("vault: order not found")
	ErrSubscriptionNotFound = errors.New("vault: subscription not found")
	ErrFlashSaleNotFound    = errors.New("vault: flash sale not found")
	ErrDripNotFound         = errors.New("vault: drip schedule not found")
	ErrRequestNotFound      = errors.New("vault: custom request not found")
	ErrPostNotFound         = errors.New("vault: scheduled post not found")

	ErrInsufficientPoints = errors.New("vault: insufficient points balance")
)
