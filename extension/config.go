package extension

import "time"

// Config holds the escrow extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.escrow" or "escrow" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// EscrowProgram is the namespace the escrow authority is derived under
	// (default: "xraph.escrow.v1").
	EscrowProgram string `json:"escrow_program" mapstructure:"escrow_program" yaml:"escrow_program"`

	// EscrowSeed is the seed the escrow authority is derived from
	// (default: "escrow").
	EscrowSeed string `json:"escrow_seed" mapstructure:"escrow_seed" yaml:"escrow_seed"`

	// SweepRecipient is the fixed destination of Sweep. Sweep is rejected
	// while it is empty.
	SweepRecipient string `json:"sweep_recipient" mapstructure:"sweep_recipient" yaml:"sweep_recipient"`

	// SweepAmount is the number of base units moved by Sweep
	// (default: 500_000_000_000).
	SweepAmount uint64 `json:"sweep_amount" mapstructure:"sweep_amount" yaml:"sweep_amount"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`

	// LedgerDSN is a PostgreSQL connection string. When set and no ledger
	// was supplied with WithLedger, balances are kept in the postgres ledger.
	LedgerDSN string `json:"ledger_dsn" mapstructure:"ledger_dsn" yaml:"ledger_dsn"`

	// RedisURL enables a shared Redis locker so that several processes can
	// serve the same store. Without it locks are process-local.
	RedisURL string `json:"redis_url" mapstructure:"redis_url" yaml:"redis_url"`

	// EnableMetrics registers the Prometheus metrics plugin on the default
	// registerer.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// AuditBrokers are Kafka seed brokers. When set, every lifecycle event
	// is published to AuditTopic through the audit hook.
	AuditBrokers []string `json:"audit_brokers" mapstructure:"audit_brokers" yaml:"audit_brokers"`

	// AuditTopic is the Kafka topic for audit events (default: "escrow.audit").
	AuditTopic string `json:"audit_topic" mapstructure:"audit_topic" yaml:"audit_topic"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EscrowProgram: "xraph.escrow.v1",
		EscrowSeed:    "escrow",
		SweepAmount:   500_000_000_000,
		HookTimeout:   5 * time.Second,
		AuditTopic:    "escrow.audit",
	}
}
