package extension

import (
	"time"

	"github.com/xraph/grove"

	vault "github.com/velora/vault"
	"github.com/velora/vault/deliver"
	"github.com/velora/vault/plugin"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/store"
	"github.com/velora/vault/webhook"
)

// Option configures the Vault Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithProvider sets the payment provider. When the provider also
// implements webhook.Verifier and no verifier was set, it serves both
// roles.
func WithProvider(p provider.Provider) Option {
	return func(e *Extension) {
		e.provider = p
	}
}

// WithVerifier sets the webhook verifier.
func WithVerifier(v webhook.Verifier) Option {
	return func(e *Extension) {
		e.verifier = v
	}
}

// WithDeliverer sets the chat delivery capability.
func WithDeliverer(d deliver.Deliverer) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, vault.WithDeliverer(d))
	}
}

// WithPublisher sets the public channel capability.
func WithPublisher(p deliver.Publisher) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, vault.WithPublisher(p))
	}
}

// WithEngineOption passes a vault.Option through to the underlying engine.
func WithEngineOption(opt vault.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a vault plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, vault.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithOrderExpiry sets how long an unpaid order stays payable.
func WithOrderExpiry(d time.Duration) Option {
	return func(e *Extension) { e.config.OrderExpiry = d }
}

// WithWebhookRetryLimit bounds retries of unmatched webhook events.
func WithWebhookRetryLimit(n int) Option {
	return func(e *Extension) { e.config.WebhookRetryLimit = n }
}

// WithPayPal configures the built-in PayPal provider.
func WithPayPal(clientID, secret, webhookID string) Option {
	return func(e *Extension) {
		e.config.PayPalClientID = clientID
		e.config.PayPalSecret = secret
		e.config.PayPalWebhookID = webhookID
	}
}

// WithGroveDB builds the store on the given grove database. The backend
// is selected by driver: "postgres", "sqlite" or "mongo".
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		if driver != "" {
			e.config.GroveDriver = driver
		}
	}
}
