package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/ledger"
	"github.com/xraph/escrow/lock"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/types"
	"github.com/xraph/escrow/vault"
)

// DefaultSweepAmount is 500 whole units at 9 decimals.
const DefaultSweepAmount uint64 = 500_000_000_000

// Engine validates escrow operations, drives the ledger, and commits the
// resulting record state.
type Engine struct {
	store   store.Store
	ledger  ledger.Ledger
	vault   *vault.Authority
	locker  lock.Locker
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Configuration
	program        string
	seed           []byte
	sweepRecipient types.Identity
	sweepAmount    uint64
	skipMigrate    bool
}

// New creates an Engine over s and l. The escrow authority is derived here
// so that a bad program namespace fails fast.
func New(s store.Store, l ledger.Ledger, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:       s,
		ledger:      l,
		locker:      lock.NewLocal(),
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		clock:       time.Now,
		program:     vault.DefaultProgram,
		seed:        []byte(vault.DefaultSeed),
		sweepAmount: DefaultSweepAmount,
	}

	for _, opt := range opts {
		opt(e)
	}

	v, err := vault.Find(e.program, e.seed, nil)
	if err != nil {
		return nil, fmt.Errorf("escrow: derive escrow authority: %w", err)
	}
	e.vault = v

	return e, nil
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHookTimeout bounds how long each plugin hook may run.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithLocker sets the per-record locker. Use a shared locker such as
// redislock when several engines write to the same store.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithClock sets the time source for record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithEscrowProgram sets the namespace the escrow authority is derived under.
func WithEscrowProgram(program string) Option {
	return func(e *Engine) {
		e.program = program
	}
}

// WithEscrowSeed sets the seed the escrow authority is derived from.
func WithEscrowSeed(seed string) Option {
	return func(e *Engine) {
		e.seed = []byte(seed)
	}
}

// WithSweep configures the fixed recipient and amount used by Sweep. A zero
// amount keeps DefaultSweepAmount.
func WithSweep(recipient types.Identity, amount uint64) Option {
	return func(e *Engine) {
		e.sweepRecipient = recipient
		if amount > 0 {
			e.sweepAmount = amount
		}
	}
}

// WithoutMigrate stops Start from running store and ledger migrations.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Start migrates the store and any ledger that carries its own schema,
// opens the escrow account on substrates that track ownership, and
// initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
		if m, ok := e.ledger.(migrator); ok {
			if err := m.Migrate(ctx); err != nil {
				return fmt.Errorf("%w: ledger: %w", ErrMigrationFailed, err)
			}
		}
	}

	if opener, ok := e.ledger.(ledger.AccountOpener); ok {
		if err := e.vault.Open(ctx, opener); err != nil {
			return fmt.Errorf("escrow: open escrow account: %w", err)
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("escrow started",
		"escrow_authority", e.vault.Identity(),
		"escrow_account", e.vault.Account(),
		"bump", e.vault.Bump(),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Store returns the underlying record store.
func (e *Engine) Store() store.Store { return e.store }

// Ledger returns the underlying balance substrate.
func (e *Engine) Ledger() ledger.Ledger { return e.ledger }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// EscrowAuthority returns the derived identity that signs escrow releases.
func (e *Engine) EscrowAuthority() types.Identity { return e.vault.Identity() }

// EscrowAccount returns the account holding escrowed funds.
func (e *Engine) EscrowAccount() types.Identity { return e.vault.Account() }

// ──────────────────────────────────────────────────
// Authority Registry
// ──────────────────────────────────────────────────

// InitializeRegistry creates an active registry for a new mint with
// mintAuthority as its sole minter.
func (e *Engine) InitializeRegistry(ctx context.Context, mintAuthority types.Identity) (*authority.Registry, error) {
	if mintAuthority.IsZero() {
		return nil, e.reject(ctx, "initialize_registry", mintAuthority,
			ValidationError{Field: "mint_authority", Message: "must not be empty"})
	}

	reg := authority.New(id.NewMintID(), mintAuthority, e.clock())
	if err := e.store.CreateRegistry(ctx, reg); err != nil {
		return nil, e.reject(ctx, "initialize_registry", mintAuthority, err)
	}

	e.logger.Info("registry initialized",
		"mint_id", reg.MintID,
		"mint_authority", reg.MintAuthority,
	)
	e.plugins.EmitRegistryInitialized(ctx, reg)

	return reg, nil
}

// GetRegistry retrieves a registry by mint.
func (e *Engine) GetRegistry(ctx context.Context, mintID id.MintID) (*authority.Registry, error) {
	return e.store.GetRegistry(ctx, mintID)
}

// ListRegistries lists registries.
func (e *Engine) ListRegistries(ctx context.Context, opts authority.ListOpts) ([]*authority.Registry, error) {
	return e.store.ListRegistries(ctx, opts)
}

// Mint creates amount new units of mintID in the to account. Only the
// registry's mint authority may mint, and only while the registry is active.
// The new total is checked for overflow before the ledger is touched.
func (e *Engine) Mint(ctx context.Context, mintID id.MintID, caller, to types.Identity, amount uint64) error {
	const op = "mint"

	release, err := e.locker.Lock(ctx, lock.RegistryKey(mintID.String()))
	if err != nil {
		return err
	}
	defer release()

	reg, err := e.store.GetRegistry(ctx, mintID)
	if err != nil {
		return e.reject(ctx, op, caller, err)
	}
	if !reg.Authorizes(caller) {
		return e.reject(ctx, op, caller, ErrUnauthorized)
	}
	if !reg.IsActive() {
		return e.reject(ctx, op, caller, ErrInactive)
	}

	next, ok := types.CheckedAdd(reg.TotalMinted, amount)
	if !ok {
		return e.reject(ctx, op, caller, ErrMathOverflow)
	}

	if err := e.ledger.Mint(ctx, mintID, to, amount); err != nil {
		return e.reject(ctx, op, caller, fmt.Errorf("escrow: ledger mint: %w", err))
	}

	at := e.clock()
	if err := e.store.RecordMint(ctx, mintID, reg.TotalMinted, next, at); err != nil {
		e.logger.Error("mint applied to ledger but total not recorded",
			"mint_id", mintID,
			"amount", amount,
			"expected_total", next,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrStateNotCommitted, err)
	}
	reg.TotalMinted = next
	reg.TouchAt(at)

	e.logger.Info("tokens minted",
		"mint_id", mintID,
		"to", to,
		"amount", amount,
		"total_minted", next,
	)
	e.plugins.EmitMinted(ctx, reg, to, amount)

	return nil
}

// Deactivate permanently disables minting for mintID. Deactivating an
// inactive registry succeeds without effect.
func (e *Engine) Deactivate(ctx context.Context, mintID id.MintID, caller types.Identity) error {
	const op = "deactivate"

	release, err := e.locker.Lock(ctx, lock.RegistryKey(mintID.String()))
	if err != nil {
		return err
	}
	defer release()

	reg, err := e.store.GetRegistry(ctx, mintID)
	if err != nil {
		return e.reject(ctx, op, caller, err)
	}
	if !reg.Authorizes(caller) {
		return e.reject(ctx, op, caller, ErrUnauthorized)
	}
	if !reg.IsActive() {
		return nil
	}

	at := e.clock()
	if err := e.store.DeactivateRegistry(ctx, mintID, at); err != nil {
		return e.reject(ctx, op, caller, err)
	}
	reg.Deactivate(at)

	e.logger.Info("registry deactivated", "mint_id", mintID)
	e.plugins.EmitRegistryDeactivated(ctx, reg)

	return nil
}

// Transfer moves amount between accounts with caller as the authorizer. No
// registry state is consulted; the ledger enforces control of from. The
// escrow authority and escrow account are refused: escrowed funds leave only
// through CompleteOrder.
func (e *Engine) Transfer(ctx context.Context, caller, from, to types.Identity, amount uint64) error {
	if e.touchesEscrow(caller, from) {
		return e.reject(ctx, "transfer", caller, ErrUnauthorized)
	}

	if err := e.ledger.Transfer(ctx, from, to, amount, caller); err != nil {
		return e.reject(ctx, "transfer", caller, fmt.Errorf("escrow: ledger transfer: %w", err))
	}

	e.logger.Info("tokens transferred",
		"from", from,
		"to", to,
		"amount", amount,
	)
	e.plugins.EmitTransferred(ctx, plugin.Transfer{
		From: from, To: to, Amount: amount, Authorizer: caller,
	})

	return nil
}

// Sweep transfers the configured sweep amount from the caller-controlled
// from account to the configured sweep recipient.
func (e *Engine) Sweep(ctx context.Context, caller, from types.Identity) error {
	const op = "sweep"

	if e.sweepRecipient.IsZero() {
		return e.reject(ctx, op, caller, ErrSweepNotConfigured)
	}
	if e.touchesEscrow(caller, from) {
		return e.reject(ctx, op, caller, ErrUnauthorized)
	}

	if err := e.ledger.Transfer(ctx, from, e.sweepRecipient, e.sweepAmount, caller); err != nil {
		return e.reject(ctx, op, caller, fmt.Errorf("escrow: ledger transfer: %w", err))
	}

	e.logger.Info("tokens swept",
		"from", from,
		"to", e.sweepRecipient,
		"amount", e.sweepAmount,
		"display", types.FormatUnits(e.sweepAmount, types.DefaultDecimals),
	)
	e.plugins.EmitTransferred(ctx, plugin.Transfer{
		From: from, To: e.sweepRecipient, Amount: e.sweepAmount, Authorizer: caller, Sweep: true,
	})

	return nil
}

// touchesEscrow reports whether a caller-driven transfer would sign as the
// escrow authority or debit the escrow account.
func (e *Engine) touchesEscrow(caller, from types.Identity) bool {
	return caller == e.vault.Identity() || from == e.vault.Account()
}

// ──────────────────────────────────────────────────
// Shops
// ──────────────────────────────────────────────────

// InitializeShop creates an active shop owned by owner.
func (e *Engine) InitializeShop(ctx context.Context, owner types.Identity) (*shop.Shop, error) {
	if owner.IsZero() {
		return nil, e.reject(ctx, "initialize_shop", owner,
			ValidationError{Field: "owner", Message: "must not be empty"})
	}

	sh := shop.New(id.NewShopID(), owner, e.clock())
	if err := e.store.CreateShop(ctx, sh); err != nil {
		return nil, e.reject(ctx, "initialize_shop", owner, err)
	}

	e.logger.Info("shop initialized", "shop_id", sh.ID, "owner", owner)
	e.plugins.EmitShopInitialized(ctx, sh)

	return sh, nil
}

// GetShop retrieves a shop by ID.
func (e *Engine) GetShop(ctx context.Context, shopID id.ShopID) (*shop.Shop, error) {
	return e.store.GetShop(ctx, shopID)
}

// ListShops lists shops.
func (e *Engine) ListShops(ctx context.Context, opts shop.ListOpts) ([]*shop.Shop, error) {
	return e.store.ListShops(ctx, opts)
}
