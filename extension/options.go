package extension

import (
	"time"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/ledger"
	"github.com/xraph/escrow/lock"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/store"
)

// Option configures the escrow Forge extension.
type Option func(*Extension)

// WithStore sets the record store for the escrow engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedger sets the balance substrate. It takes precedence over LedgerDSN.
func WithLedger(l ledger.Ledger) Option {
	return func(e *Extension) {
		e.ledger = l
	}
}

// WithLocker sets the per-record locker. It takes precedence over RedisURL.
func WithLocker(l lock.Locker) Option {
	return func(e *Extension) {
		e.locker = l
	}
}

// WithEngineOption passes an escrow.Option through to the underlying engine.
func WithEngineOption(opt escrow.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an escrow plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, escrow.WithPlugin(p))
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

// WithEscrowProgram sets the namespace the escrow authority is derived under.
func WithEscrowProgram(program string) Option {
	return func(e *Extension) { e.config.EscrowProgram = program }
}

// WithSweep sets the sweep recipient and amount.
func WithSweep(recipient string, amount uint64) Option {
	return func(e *Extension) {
		e.config.SweepRecipient = recipient
		e.config.SweepAmount = amount
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.HookTimeout = d }
}

// WithLedgerDSN keeps balances in PostgreSQL at dsn.
func WithLedgerDSN(dsn string) Option {
	return func(e *Extension) { e.config.LedgerDSN = dsn }
}

// WithRedisURL shares record locks through Redis at url.
func WithRedisURL(url string) Option {
	return func(e *Extension) { e.config.RedisURL = url }
}

// WithMetrics registers the Prometheus metrics plugin.
func WithMetrics() Option {
	return func(e *Extension) { e.config.EnableMetrics = true }
}

// WithAuditBrokers publishes audit events to Kafka at the given brokers.
func WithAuditBrokers(topic string, brokers ...string) Option {
	return func(e *Extension) {
		e.config.AuditTopic = topic
		e.config.AuditBrokers = brokers
	}
}
