package extension

import "time"

// Config holds the Vault extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.vault" or "vault" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// OrderExpiry is how long an unpaid order stays payable (default: 1h).
	OrderExpiry time.Duration `json:"order_expiry" mapstructure:"order_expiry" yaml:"order_expiry"`

	// WebhookRetryLimit bounds retries of webhook events that matched no
	// order yet (default: 5).
	WebhookRetryLimit int `json:"webhook_retry_limit" mapstructure:"webhook_retry_limit" yaml:"webhook_retry_limit"`

	// PayPalClientID, PayPalSecret and PayPalWebhookID configure the
	// built-in PayPal provider. When all three are set and no provider was
	// supplied programmatically, the extension constructs the PayPal
	// client itself.
	PayPalClientID  string `json:"paypal_client_id" mapstructure:"paypal_client_id" yaml:"paypal_client_id"`
	PayPalSecret    string `json:"paypal_secret" mapstructure:"paypal_secret" yaml:"paypal_secret"`
	PayPalWebhookID string `json:"paypal_webhook_id" mapstructure:"paypal_webhook_id" yaml:"paypal_webhook_id"`

	// PayPalSandbox points the provider at the PayPal sandbox host.
	PayPalSandbox bool `json:"paypal_sandbox" mapstructure:"paypal_sandbox" yaml:"paypal_sandbox"`

	// GroveDriver selects the store backend built on a grove.DB supplied
	// via WithGroveDB: "postgres", "sqlite" or "mongo" (default: "postgres").
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OrderExpiry:       time.Hour,
		WebhookRetryLimit: 5,
		GroveDriver:       "postgres",
	}
}
