package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/escrow/id"
	ledgerpostgres "github.com/xraph/escrow/ledger/postgres"
	"github.com/xraph/escrow/vault"
)

func TestRunAddress(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"address"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	a, err := vault.Find(vault.DefaultProgram, []byte(vault.DefaultSeed), nil)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.Contains(out.String(), string(a.Identity())) {
		t.Fatalf("address output missing authority:\n%s", out.String())
	}
	if !strings.Contains(out.String(), string(a.Account())) {
		t.Fatalf("address output missing account:\n%s", out.String())
	}
}

func TestRunDemo(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"demo"}, &out); err != nil {
		t.Fatalf("run demo: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"after completion",
		"demo-buyer               700.000000000",
		"demo-seller              300.000000000",
		"order 1 total 300.000000000 supply 1000.000000000",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("demo output missing %q:\n%s", want, got)
		}
	}
}

func TestRunLedgerCommandsNeedDSN(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"balance", "alice"}, &out)
	if !errors.Is(err, errNoLedgerDSN) {
		t.Fatalf("expected errNoLedgerDSN, got %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"frobnicate"}, &out); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunMissingCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(nil, &out); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestFormatEntryUsesUTC(t *testing.T) {
	east := time.FixedZone("UTC+3", 3*60*60)
	e := ledgerpostgres.Entry{
		ID:        id.NewTransferID(),
		Kind:      "transfer",
		From:      "buyer",
		To:        "seller",
		Amount:    1_500_000_000,
		CreatedAt: time.Date(2024, 3, 1, 13, 0, 0, 0, east),
	}

	got := formatEntry(e, 9)
	want := "2024-03-01T10:00:00Z\t" + e.ID.String() + "\ttransfer\tbuyer -> seller\t1.500000000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
