package audithook

// Action constants for audit events.
const (
	// Order actions
	ActionOrderCreated   = "order.created"
	ActionOrderPaid      = "order.paid"
	ActionOrderFulfilled = "order.fulfilled"
	ActionOrderExpired   = "order.expired"
	ActionOrderFailed    = "order.failed"

	// Subscription actions
	ActionSubscriptionActivated = "subscription.activated"
	ActionSubscriptionExpired   = "subscription.expired"

	// Promotion actions
	ActionFlashSaleStarted = "flash_sale.started"
	ActionFlashSaleExpired = "flash_sale.expired"
	ActionDripDelivered    = "drip.delivered"

	// Loyalty actions
	ActionPointsCredited = "points.credited"
	ActionPointsRedeemed = "points.redeemed"
	ActionTierChanged    = "tier.changed"

	// Webhook actions
	ActionWebhookReceived       = "webhook.received"
	ActionWebhookDuplicate      = "webhook.duplicate"
	ActionReconciliationFlagged = "reconciliation.flagged"

	// Safety actions
	ActionSafetyViolation = "safety.violation"
)

// Resource constants for audit events.
const (
	ResourceOrder        = "order"
	ResourceSubscription = "subscription"
	ResourceFlashSale    = "flash_sale"
	ResourceDrip         = "drip"
	ResourceUser         = "user"
	ResourceWebhook      = "webhook"
	ResourceImage        = "image"
)

// Category constants for audit events.
const (
	CategoryCommerce  = "commerce"
	CategoryLoyalty   = "loyalty"
	CategoryPromotion = "promotion"
	CategoryPayment   = "payment"
	CategorySafety    = "safety"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
