package vault

import (
	"context"
	"log/slog"
	"time"

	"github.com/velora/vault/deliver"
	"github.com/velora/vault/id"
	"github.com/velora/vault/loyalty"
	"github.com/velora/vault/plugin"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/scheduler"
	"github.com/velora/vault/store"
	"github.com/velora/vault/types"
	"github.com/velora/vault/user"
	"github.com/velora/vault/webhook"
)

// Config holds the engine's product parameters. Zero-value fields are
// filled from DefaultConfig at construction.
type Config struct {
	// OrderExpiry is how long an unpaid order stays payable.
	OrderExpiry time.Duration
	// SubscriptionPeriod is the paid window per subscription purchase.
	SubscriptionPeriod time.Duration

	// Points per major currency unit spent.
	PointsPerUnitImage        int64
	PointsPerUnitSubscription int64
	// ReferralBonusPoints is credited to the referrer on the referee's
	// first fulfilled purchase.
	ReferralBonusPoints int64

	// WelcomeFreeUnlocks is the free-unlock token grant at registration.
	WelcomeFreeUnlocks int

	// MinimumPrice floors every quote after discounts.
	MinimumPrice types.Money

	// TierThresholds maps lifetime spend to loyalty tiers.
	TierThresholds user.Thresholds
	// TierPrices is the monthly subscription price per paid tier.
	TierPrices map[user.Tier]types.Money

	// WebhookRetryLimit bounds retries of events that matched no order.
	WebhookRetryLimit int
	// ProcessedEventTTL bounds the idempotency log. Must exceed the
	// provider's redelivery window.
	ProcessedEventTTL time.Duration

	// SubscriptionExpiryNotice is how far ahead expiry warnings go out.
	SubscriptionExpiryNotice time.Duration

	// Scheduler cadences.
	DripInterval         time.Duration
	FlashSaleInterval    time.Duration
	SubscriptionInterval time.Duration
	PostInterval         time.Duration
	WebhookTickInterval  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		OrderExpiry:               time.Hour,
		SubscriptionPeriod:        30 * 24 * time.Hour,
		PointsPerUnitImage:        10,
		PointsPerUnitSubscription: 15,
		ReferralBonusPoints:       50,
		WelcomeFreeUnlocks:        1,
		MinimumPrice:              types.USD(100),
		TierThresholds:            user.Thresholds{Bronze: 2500, Silver: 7500, Gold: 15000},
		TierPrices: map[user.Tier]types.Money{
			user.TierBronze: types.USD(999),
			user.TierSilver: types.USD(1999),
			user.TierGold:   types.USD(3999),
		},
		WebhookRetryLimit:        5,
		ProcessedEventTTL:        30 * 24 * time.Hour,
		SubscriptionExpiryNotice: 72 * time.Hour,
		DripInterval:             5 * time.Minute,
		FlashSaleInterval:        2 * time.Minute,
		SubscriptionInterval:     6 * time.Hour,
		PostInterval:             time.Minute,
		WebhookTickInterval:      time.Minute,
	}
}

// Engine is the purchase-and-fulfillment engine. An application embeds
// it, injects the payment provider and delivery capabilities, and
// starts it.
type Engine struct {
	store     store.Store
	provider  provider.Provider
	deliverer deliver.Deliverer
	publisher deliver.Publisher
	objects   deliver.ObjectStore
	plugins   *plugin.Registry
	logger    *slog.Logger
	cfg       Config
	rewards   []loyalty.Reward

	processor *webhook.Processor
	sched     *scheduler.Scheduler
}

// New creates an Engine. The store and payment provider are required;
// delivery capabilities default to no-ops so tests and partial
// deployments work.
func New(s store.Store, p provider.Provider, verifier webhook.Verifier, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		provider: p,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		cfg:      DefaultConfig(),
		rewards:  loyalty.DefaultRewards(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.processor = webhook.NewProcessor(verifier, webhookStore{e.store}, e.cfg.WebhookRetryLimit, e.logger)
	e.processor.OnDuplicate = func(ctx context.Context, evt *webhook.Event) {
		e.plugins.EmitWebhookDuplicate(ctx, evt.Type, evt.Key)
	}
	e.processor.OnReconciliation = func(ctx context.Context, pe *webhook.PendingEvent) {
		e.plugins.EmitReconciliationRequired(ctx, pe.Key, "webhook retries exhausted")
	}
	e.registerHandlers()

	e.sched = scheduler.New(e.logger)

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithDeliverer sets the chat delivery capability.
func WithDeliverer(d deliver.Deliverer) Option {
	return func(e *Engine) {
		e.deliverer = d
	}
}

// WithPublisher sets the public channel capability.
func WithPublisher(p deliver.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithObjectStore sets the content resolver. When present, unlock
// deliveries carry a resolved URL for the image's storage key.
func WithObjectStore(os deliver.ObjectStore) Option {
	return func(e *Engine) {
		e.objects = os
	}
}

// WithRewards replaces the built-in reward catalog.
func WithRewards(rewards []loyalty.Reward) Option {
	return func(e *Engine) {
		e.rewards = rewards
	}
}

// Start migrates the store, initializes plugins, and launches the
// scheduler jobs.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	if err := e.registerJobs(); err != nil {
		return err
	}
	if err := e.sched.Start(ctx); err != nil {
		return err
	}

	e.logger.Info("vault started",
		"order_expiry", e.cfg.OrderExpiry,
		"subscription_period", e.cfg.SubscriptionPeriod,
		"webhook_retry_limit", e.cfg.WebhookRetryLimit,
	)

	return nil
}

// Stop shuts the engine down, waiting for in-flight jobs.
func (e *Engine) Stop() error {
	e.sched.Stop()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Jobs reports the scheduler's job statuses.
func (e *Engine) Jobs() []scheduler.JobStatus {
	return e.sched.Status()
}

// webhookStore adapts the unified store to the webhook package's
// narrower interface.
type webhookStore struct {
	s store.Store
}

func (w webhookStore) CheckAndRecord(ctx context.Context, key, eventType string) (bool, error) {
	return w.s.CheckAndRecordEvent(ctx, key, eventType)
}

func (w webhookStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return w.s.PurgeProcessedEvents(ctx, cutoff)
}

func (w webhookStore) EnqueuePending(ctx context.Context, p *webhook.PendingEvent) error {
	return w.s.EnqueuePendingEvent(ctx, p)
}

func (w webhookStore) ListPending(ctx context.Context, limit int) ([]*webhook.PendingEvent, error) {
	return w.s.ListPendingEvents(ctx, limit)
}

func (w webhookStore) UpdatePending(ctx context.Context, p *webhook.PendingEvent) error {
	return w.s.UpdatePendingEvent(ctx, p)
}

func (w webhookStore) DeletePending(ctx context.Context, eventID id.WebhookEventID) error {
	return w.s.DeletePendingEvent(ctx, eventID)
}
