// Command escrowctl inspects and exercises an escrow deployment: it prints
// the derived escrow address, migrates and reads the Postgres ledger, and
// runs an in-memory demo of the order flow.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/escrow"
	ledgermemory "github.com/xraph/escrow/ledger/memory"
	ledgerpostgres "github.com/xraph/escrow/ledger/postgres"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/types"
	"github.com/xraph/escrow/vault"
)

const usage = `usage: escrowctl [-config file.toml] <command> [args]

commands:
  address              print the derived escrow authority and account
  migrate-ledger       create the postgres ledger tables
  balance <account>    print an account balance from the postgres ledger
  history <account>    print recent journal entries for an account
  demo                 run a mint, order, pay, complete flow in memory
`

var errNoLedgerDSN = errors.New("ledger_dsn is not configured")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "escrowctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("escrowctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	switch rest[0] {
	case "address":
		return printAddress(cfg, out)
	case "migrate-ledger":
		return withLedger(ctx, cfg, func(l *ledgerpostgres.Ledger) error {
			if err := l.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("ledger migrated")
			return nil
		})
	case "balance":
		if len(rest) != 2 {
			return errors.New("balance needs exactly one account")
		}
		return withLedger(ctx, cfg, func(l *ledgerpostgres.Ledger) error {
			bal, err := l.Balance(ctx, types.Identity(rest[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\n", rest[1], types.FormatUnits(bal, cfg.Decimals))
			return nil
		})
	case "history":
		if len(rest) != 2 {
			return errors.New("history needs exactly one account")
		}
		return withLedger(ctx, cfg, func(l *ledgerpostgres.Ledger) error {
			entries, err := l.History(ctx, types.Identity(rest[1]), 50)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(out, formatEntry(e, cfg.Decimals))
			}
			return nil
		})
	case "demo":
		return runDemo(ctx, cfg, logger, out)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printAddress(cfg ctlConfig, out io.Writer) error {
	a, err := vault.Find(cfg.EscrowProgram, []byte(cfg.EscrowSeed), nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "program\t%s\n", a.Program())
	fmt.Fprintf(out, "authority\t%s\n", a.Identity())
	fmt.Fprintf(out, "account\t%s\n", a.Account())
	fmt.Fprintf(out, "bump\t%d\n", a.Bump())
	return nil
}

func withLedger(ctx context.Context, cfg ctlConfig, fn func(*ledgerpostgres.Ledger) error) error {
	if cfg.LedgerDSN == "" {
		return errNoLedgerDSN
	}
	pool, err := pgxpool.New(ctx, cfg.LedgerDSN)
	if err != nil {
		return fmt.Errorf("connect ledger: %w", err)
	}
	l := ledgerpostgres.New(pool)
	defer l.Close()

	if err := l.Ping(ctx); err != nil {
		return fmt.Errorf("ping ledger: %w", err)
	}
	return fn(l)
}

// runDemo walks one order through its whole life against in-memory
// backends and prints the resulting balances.
func runDemo(ctx context.Context, cfg ctlConfig, logger *slog.Logger, out io.Writer) error {
	const (
		mintAuthority types.Identity = "demo-mint-authority"
		buyer         types.Identity = "demo-buyer"
		seller        types.Identity = "demo-seller"
	)

	l := ledgermemory.New()
	opts := []escrow.Option{
		escrow.WithLogger(logger),
		escrow.WithEscrowProgram(cfg.EscrowProgram),
		escrow.WithEscrowSeed(cfg.EscrowSeed),
	}
	if !cfg.SweepRecipient.IsZero() {
		opts = append(opts, escrow.WithSweep(cfg.SweepRecipient, cfg.SweepAmount))
	}
	eng, err := escrow.New(memory.New(), l, opts...)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop() //nolint:errcheck // memory store close cannot fail

	funding, ok := types.WholeUnits(1_000, cfg.Decimals)
	if !ok {
		return escrow.ErrMathOverflow
	}
	price, ok := types.WholeUnits(150, cfg.Decimals)
	if !ok {
		return escrow.ErrMathOverflow
	}

	reg, err := eng.InitializeRegistry(ctx, mintAuthority)
	if err != nil {
		return err
	}
	if err := eng.Mint(ctx, reg.MintID, mintAuthority, buyer, funding); err != nil {
		return err
	}

	sh, err := eng.InitializeShop(ctx, seller)
	if err != nil {
		return err
	}
	o, err := eng.CreateOrder(ctx, sh.ID, buyer, order.Params{
		ID:           1,
		ProductID:    42,
		Quantity:     2,
		PricePerItem: price,
	})
	if err != nil {
		return err
	}

	report := func(stage string) error {
		fmt.Fprintf(out, "%s\n", stage)
		for _, acct := range []types.Identity{buyer, eng.EscrowAccount(), seller} {
			bal, err := l.Balance(ctx, acct)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-24s %s\n", acct.Short(), types.FormatUnits(bal, cfg.Decimals))
		}
		return nil
	}

	if err := report("after mint"); err != nil {
		return err
	}
	if err := eng.ProcessPayment(ctx, o.ID, buyer); err != nil {
		return err
	}
	if err := report("after payment"); err != nil {
		return err
	}
	if err := eng.CompleteOrder(ctx, o.ID); err != nil {
		return err
	}
	if err := report("after completion"); err != nil {
		return err
	}

	fmt.Fprintf(out, "order %s total %s supply %s\n",
		strconv.FormatUint(o.ID, 10),
		types.FormatUnits(o.TotalAmount, cfg.Decimals),
		types.FormatUnits(l.Supply(reg.MintID), cfg.Decimals))
	return nil
}

// formatEntry renders one journal entry as a tab-separated history line.
func formatEntry(e ledgerpostgres.Entry, decimals uint8) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s -> %s\t%s",
		e.CreatedAt.UTC().Format(time.RFC3339), e.ID, e.Kind,
		e.From, e.To, types.FormatUnits(e.Amount, decimals))
}
