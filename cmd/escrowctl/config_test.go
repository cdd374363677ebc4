package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/vault"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escrowctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.EscrowProgram != vault.DefaultProgram {
		t.Fatalf("unexpected program: %q", cfg.EscrowProgram)
	}
	if cfg.SweepAmount != escrow.DefaultSweepAmount {
		t.Fatalf("unexpected sweep amount: %d", cfg.SweepAmount)
	}
	if cfg.Decimals != 9 {
		t.Fatalf("unexpected decimals: %d", cfg.Decimals)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
escrow_program = "  acme.escrow  "
escrow_seed = "vault"
ledger_dsn = "postgres://localhost/escrow"
sweep_recipient = "cold-wallet"
sweep_amount = 25
decimals = 6
log_level = "DEBUG"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.EscrowProgram != "acme.escrow" {
		t.Fatalf("unexpected program: %q", cfg.EscrowProgram)
	}
	if cfg.EscrowSeed != "vault" {
		t.Fatalf("unexpected seed: %q", cfg.EscrowSeed)
	}
	if cfg.LedgerDSN != "postgres://localhost/escrow" {
		t.Fatalf("unexpected dsn: %q", cfg.LedgerDSN)
	}
	if cfg.SweepRecipient != "cold-wallet" || cfg.SweepAmount != 25 {
		t.Fatalf("unexpected sweep: %q %d", cfg.SweepRecipient, cfg.SweepAmount)
	}
	if cfg.Decimals != 6 {
		t.Fatalf("unexpected decimals: %d", cfg.Decimals)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `sweep_recipient = "cold"`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.EscrowSeed != vault.DefaultSeed {
		t.Fatalf("unexpected seed: %q", cfg.EscrowSeed)
	}
	if cfg.SweepAmount != escrow.DefaultSweepAmount {
		t.Fatalf("unexpected sweep amount: %d", cfg.SweepAmount)
	}
}

func TestLoadConfigRejectsDecimals(t *testing.T) {
	path := writeConfig(t, `decimals = 20`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected decimals error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
