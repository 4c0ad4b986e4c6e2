// Package extension provides the Forge extension adapter for Vault.
//
// It implements the forge.Extension interface to integrate Vault
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.vault" or "vault" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	vault "github.com/velora/vault"
	"github.com/velora/vault/provider"
	"github.com/velora/vault/provider/paypal"
	"github.com/velora/vault/store"
	"github.com/velora/vault/store/memory"
	"github.com/velora/vault/store/mongo"
	"github.com/velora/vault/store/postgres"
	"github.com/velora/vault/store/sqlite"
	"github.com/velora/vault/webhook"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "vault"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Purchase and fulfillment engine for unlockable chat content"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Vault as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *vault.Engine
	store      store.Store
	provider   provider.Provider
	verifier   webhook.Verifier
	groveDB    *grove.DB
	engineOpts []vault.Option
}

// New creates a new Vault Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Vault engine.
// This is nil until Register is called.
func (e *Extension) Engine() *vault.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the vault engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.buildStore(); err != nil {
		return err
	}

	if err := e.buildProvider(); err != nil {
		return err
	}

	opts := e.buildEngineOpts()

	e.engine = vault.New(e.store, e.provider, e.verifier, opts...)

	return vessel.Provide(fapp.Container(), func() (*vault.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("vault: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("vault: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore picks the store backend. A programmatic store wins; a grove
// database selects the driver-matching backend; otherwise memory.
func (e *Extension) buildStore() error {
	if e.store != nil {
		return nil
	}

	if e.groveDB != nil {
		switch e.config.GroveDriver {
		case "postgres", "":
			e.store = postgres.New(e.groveDB)
		case "sqlite":
			e.store = sqlite.New(e.groveDB)
		case "mongo":
			e.store = mongo.New(e.groveDB)
		default:
			return fmt.Errorf("vault: unknown grove driver %q", e.config.GroveDriver)
		}
		return nil
	}

	e.store = memory.New()
	return nil
}

// buildProvider constructs the PayPal client from config when no provider
// was supplied programmatically. The client serves as the verifier too
// unless one was set explicitly.
func (e *Extension) buildProvider() error {
	if e.provider == nil {
		if e.config.PayPalClientID == "" || e.config.PayPalSecret == "" {
			return errors.New("vault: no payment provider configured; " +
				"set paypal credentials or use WithProvider")
		}

		var popts []paypal.Option
		if e.config.PayPalSandbox {
			popts = append(popts, paypal.WithBaseURL(paypal.SandboxBase))
		}
		client := paypal.New(e.config.PayPalClientID, e.config.PayPalSecret, e.config.PayPalWebhookID, popts...)
		e.provider = client
		if e.verifier == nil {
			e.verifier = client
		}
	}

	if e.verifier == nil {
		if v, ok := e.provider.(webhook.Verifier); ok {
			e.verifier = v
		} else {
			return errors.New("vault: no webhook verifier configured; " +
				"provider does not verify signatures, use WithVerifier")
		}
	}

	return nil
}

// buildEngineOpts constructs vault.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []vault.Option {
	opts := make([]vault.Option, 0, len(e.engineOpts)+1)

	if e.config.OrderExpiry > 0 || e.config.WebhookRetryLimit > 0 {
		cfg := vault.DefaultConfig()
		if e.config.OrderExpiry > 0 {
			cfg.OrderExpiry = e.config.OrderExpiry
		}
		if e.config.WebhookRetryLimit > 0 {
			cfg.WebhookRetryLimit = e.config.WebhookRetryLimit
		}
		opts = append(opts, vault.WithConfig(cfg))
	}

	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("vault: configuration is required but not found in config files; " +
				"ensure 'extensions.vault' or 'vault' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("vault: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("order_expiry", e.config.OrderExpiry),
		forge.F("webhook_retry_limit", e.config.WebhookRetryLimit),
		forge.F("grove_driver", e.config.GroveDriver),
		forge.F("paypal_sandbox", e.config.PayPalSandbox),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.vault" first (namespaced pattern).
	if cm.IsSet("extensions.vault") {
		if err := cm.Bind("extensions.vault", &cfg); err == nil {
			e.Logger().Debug("vault: loaded config from file",
				forge.F("key", "extensions.vault"),
			)
			return cfg, true
		}
		e.Logger().Warn("vault: failed to bind extensions.vault config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "vault" key.
	if cm.IsSet("vault") {
		if err := cm.Bind("vault", &cfg); err == nil {
			e.Logger().Debug("vault: loaded config from file",
				forge.F("key", "vault"),
			)
			return cfg, true
		}
		e.Logger().Warn("vault: failed to bind vault config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.OrderExpiry == 0 {
		cfg.OrderExpiry = defaults.OrderExpiry
	}
	if cfg.WebhookRetryLimit == 0 {
		cfg.WebhookRetryLimit = defaults.WebhookRetryLimit
	}
	if cfg.GroveDriver == "" {
		cfg.GroveDriver = defaults.GroveDriver
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.PayPalSandbox {
		yamlConfig.PayPalSandbox = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.PayPalClientID == "" && programmaticConfig.PayPalClientID != "" {
		yamlConfig.PayPalClientID = programmaticConfig.PayPalClientID
	}
	if yamlConfig.PayPalSecret == "" && programmaticConfig.PayPalSecret != "" {
		yamlConfig.PayPalSecret = programmaticConfig.PayPalSecret
	}
	if yamlConfig.PayPalWebhookID == "" && programmaticConfig.PayPalWebhookID != "" {
		yamlConfig.PayPalWebhookID = programmaticConfig.PayPalWebhookID
	}
	if yamlConfig.GroveDriver == "" && programmaticConfig.GroveDriver != "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.OrderExpiry == 0 && programmaticConfig.OrderExpiry != 0 {
		yamlConfig.OrderExpiry = programmaticConfig.OrderExpiry
	}
	if yamlConfig.WebhookRetryLimit == 0 && programmaticConfig.WebhookRetryLimit != 0 {
		yamlConfig.WebhookRetryLimit = programmaticConfig.WebhookRetryLimit
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
