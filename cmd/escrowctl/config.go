package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/types"
	"github.com/xraph/escrow/vault"
)

type fileConfig struct {
	EscrowProgram  string `toml:"escrow_program"`
	EscrowSeed     string `toml:"escrow_seed"`
	LedgerDSN      string `toml:"ledger_dsn"`
	SweepRecipient string `toml:"sweep_recipient"`
	SweepAmount    uint64 `toml:"sweep_amount"`
	Decimals       uint8  `toml:"decimals"`
	LogLevel       string `toml:"log_level"`
}

type ctlConfig struct {
	EscrowProgram  string
	EscrowSeed     string
	LedgerDSN      string
	SweepRecipient types.Identity
	SweepAmount    uint64
	Decimals       uint8
	LogLevel       string
}

func defaultConfig() ctlConfig {
	return ctlConfig{
		EscrowProgram: vault.DefaultProgram,
		EscrowSeed:    vault.DefaultSeed,
		SweepAmount:   escrow.DefaultSweepAmount,
		Decimals:      types.DefaultDecimals,
		LogLevel:      "info",
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults unchanged.
func loadConfig(path string) (ctlConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ctlConfig{}, fmt.Errorf("load escrowctl config: %w", err)
	}

	if meta.IsDefined("escrow_program") {
		if p := strings.TrimSpace(raw.EscrowProgram); p != "" {
			cfg.EscrowProgram = p
		}
	}

	if meta.IsDefined("escrow_seed") {
		cfg.EscrowSeed = raw.EscrowSeed
	}

	if meta.IsDefined("ledger_dsn") {
		cfg.LedgerDSN = strings.TrimSpace(raw.LedgerDSN)
	}

	if meta.IsDefined("sweep_recipient") {
		cfg.SweepRecipient = types.Identity(strings.TrimSpace(raw.SweepRecipient))
	}

	if meta.IsDefined("sweep_amount") && raw.SweepAmount > 0 {
		cfg.SweepAmount = raw.SweepAmount
	}

	if meta.IsDefined("decimals") {
		if raw.Decimals > 19 {
			return ctlConfig{}, fmt.Errorf("decimals %d out of range", raw.Decimals)
		}
		cfg.Decimals = raw.Decimals
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	return cfg, nil
}
