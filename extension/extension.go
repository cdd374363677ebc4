// Package extension provides the Forge extension adapter for the escrow engine.
//
// It implements the forge.Extension interface to integrate escrow
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.escrow" or "escrow" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/escrow"
	audithook "github.com/xraph/escrow/audit_hook"
	"github.com/xraph/escrow/audit_hook/kafkarecorder"
	"github.com/xraph/escrow/ledger"
	ledgermemory "github.com/xraph/escrow/ledger/memory"
	ledgerpostgres "github.com/xraph/escrow/ledger/postgres"
	"github.com/xraph/escrow/lock"
	"github.com/xraph/escrow/lock/redislock"
	"github.com/xraph/escrow/observability"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "escrow"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Custodial value transfer and order escrow engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the escrow engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *escrow.Engine
	store      store.Store
	ledger     ledger.Ledger
	locker     lock.Locker
	engineOpts []escrow.Option

	// Resources opened from config and closed on Stop.
	pool      *pgxpool.Pool
	redisLock *redislock.Locker
	audit     *kafkarecorder.Recorder
}

// New creates a new escrow Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying escrow engine.
// This is nil until Register is called.
func (e *Extension) Engine() *escrow.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the escrow engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.resolveBackends(context.Background()); err != nil {
		return err
	}

	eng, err := escrow.New(e.store, e.ledger, e.buildEngineOpts()...)
	if err != nil {
		return errors.Join(err, e.closeBackends())
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*escrow.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("escrow: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.closeBackends(); err != nil {
		errs = append(errs, err)
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// closeBackends releases the connections resolveBackends opened.
func (e *Extension) closeBackends() error {
	var err error
	if e.redisLock != nil {
		err = e.redisLock.Close()
		e.redisLock = nil
	}
	if e.audit != nil {
		e.audit.Close()
		e.audit = nil
	}
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("escrow: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.pool != nil {
		return e.pool.Ping(ctx)
	}
	return nil
}

// resolveBackends fills in the store, ledger and locker. Programmatic values
// win; otherwise config decides, falling back to in-memory backends. On
// failure every connection it opened is closed again.
func (e *Extension) resolveBackends(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(err, e.closeBackends())
		}
	}()

	if e.store == nil {
		e.store = memory.New()
	}

	if e.ledger == nil {
		if e.config.LedgerDSN != "" {
			pool, err := pgxpool.New(ctx, e.config.LedgerDSN)
			if err != nil {
				return fmt.Errorf("escrow: open ledger database: %w", err)
			}
			e.pool = pool
			e.ledger = ledgerpostgres.New(pool)
		} else {
			e.ledger = ledgermemory.New()
		}
	}

	if e.locker == nil && e.config.RedisURL != "" {
		rl, err := redislock.Dial(ctx, e.config.RedisURL)
		if err != nil {
			return fmt.Errorf("escrow: connect lock service: %w", err)
		}
		e.redisLock = rl
		e.locker = rl
	}

	if len(e.config.AuditBrokers) > 0 {
		rec, err := kafkarecorder.Dial(ctx, e.config.AuditBrokers, e.config.AuditTopic)
		if err != nil {
			return fmt.Errorf("escrow: connect audit brokers: %w", err)
		}
		e.audit = rec
	}

	return nil
}

// buildEngineOpts constructs escrow.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []escrow.Option {
	opts := make([]escrow.Option, 0, len(e.engineOpts)+8)

	opts = append(opts,
		escrow.WithEscrowProgram(e.config.EscrowProgram),
		escrow.WithEscrowSeed(e.config.EscrowSeed),
		escrow.WithHookTimeout(e.config.HookTimeout),
	)
	if e.config.SweepRecipient != "" {
		opts = append(opts, escrow.WithSweep(types.Identity(e.config.SweepRecipient), e.config.SweepAmount))
	}
	if e.config.DisableMigrate {
		opts = append(opts, escrow.WithoutMigrate())
	}
	if e.locker != nil {
		opts = append(opts, escrow.WithLocker(e.locker))
	}
	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(nil)
		opts = append(opts, escrow.WithPlugin(observability.NewMetricsExtension(factory)))
	}
	if e.audit != nil {
		opts = append(opts, escrow.WithPlugin(audithook.New(e.audit)))
	}

	// Append any pass-through engine options.
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
			return errors.New("escrow: configuration is required but not found in config files; " +
				"ensure 'extensions.escrow' or 'escrow' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("escrow: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("escrow_program", e.config.EscrowProgram),
		forge.F("sweep_configured", e.config.SweepRecipient != ""),
		forge.F("sweep_amount", e.config.SweepAmount),
		forge.F("hook_timeout", e.config.HookTimeout),
		forge.F("postgres_ledger", e.config.LedgerDSN != ""),
		forge.F("redis_locks", e.config.RedisURL != ""),
		forge.F("metrics", e.config.EnableMetrics),
		forge.F("audit_brokers", len(e.config.AuditBrokers)),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.escrow" first (namespaced pattern).
	if cm.IsSet("extensions.escrow") {
		err := cm.Bind("extensions.escrow", &cfg)
		if err == nil {
			e.Logger().Debug("escrow: loaded config from file",
				forge.F("key", "extensions.escrow"),
			)
			return cfg, true
		}
		e.Logger().Warn("escrow: failed to bind extensions.escrow config",
			forge.F("error", err.Error()),
		)
	}

	// Try the bare "escrow" key.
	if cm.IsSet("escrow") {
		err := cm.Bind("escrow", &cfg)
		if err == nil {
			e.Logger().Debug("escrow: loaded config from file",
				forge.F("key", "escrow"),
			)
			return cfg, true
		}
		e.Logger().Warn("escrow: failed to bind escrow config",
			forge.F("error", err.Error()),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.EscrowProgram == "" {
		cfg.EscrowProgram = defaults.EscrowProgram
	}
	if cfg.EscrowSeed == "" {
		cfg.EscrowSeed = defaults.EscrowSeed
	}
	if cfg.SweepAmount == 0 {
		cfg.SweepAmount = defaults.SweepAmount
	}
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = defaults.HookTimeout
	}
	if cfg.AuditTopic == "" {
		cfg.AuditTopic = defaults.AuditTopic
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}
	if len(yamlConfig.AuditBrokers) == 0 {
		yamlConfig.AuditBrokers = programmaticConfig.AuditBrokers
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.EscrowProgram, programmaticConfig.EscrowProgram)
	fill(&yamlConfig.EscrowSeed, programmaticConfig.EscrowSeed)
	fill(&yamlConfig.SweepRecipient, programmaticConfig.SweepRecipient)
	fill(&yamlConfig.LedgerDSN, programmaticConfig.LedgerDSN)
	fill(&yamlConfig.RedisURL, programmaticConfig.RedisURL)
	fill(&yamlConfig.AuditTopic, programmaticConfig.AuditTopic)

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SweepAmount == 0 && programmaticConfig.SweepAmount != 0 {
		yamlConfig.SweepAmount = programmaticConfig.SweepAmount
	}
	if yamlConfig.HookTimeout == 0 && programmaticConfig.HookTimeout != 0 {
		yamlConfig.HookTimeout = programmaticConfig.HookTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
