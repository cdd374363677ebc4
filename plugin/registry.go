package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/types"
)

// DefaultHookTimeout bounds how long a single hook may run.
const DefaultHookTimeout = 5 * time.Second

// Registry manages registered plugins and dispatches hooks to them.
// Implemented hook interfaces are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onRegistryInitialized []OnRegistryInitialized
	onMinted              []OnMinted
	onRegistryDeactivated []OnRegistryDeactivated
	onTransferred         []OnTransferred
	onShopInitialized     []OnShopInitialized
	onOrderCreated        []OnOrderCreated
	onOrderPaid           []OnOrderPaid
	onOrderCompleted      []OnOrderCompleted
	onOperationRejected   []OnOperationRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnRegistryInitialized); ok {
		r.onRegistryInitialized = append(r.onRegistryInitialized, v)
	}
	if v, ok := p.(OnMinted); ok {
		r.onMinted = append(r.onMinted, v)
	}
	if v, ok := p.(OnRegistryDeactivated); ok {
		r.onRegistryDeactivated = append(r.onRegistryDeactivated, v)
	}
	if v, ok := p.(OnTransferred); ok {
		r.onTransferred = append(r.onTransferred, v)
	}
	if v, ok := p.(OnShopInitialized); ok {
		r.onShopInitialized = append(r.onShopInitialized, v)
	}
	if v, ok := p.(OnOrderCreated); ok {
		r.onOrderCreated = append(r.onOrderCreated, v)
	}
	if v, ok := p.(OnOrderPaid); ok {
		r.onOrderPaid = append(r.onOrderPaid, v)
	}
	if v, ok := p.(OnOrderCompleted); ok {
		r.onOrderCompleted = append(r.onOrderCompleted, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnRegistryInitialized", reflect.TypeFor[OnRegistryInitialized]()},
	{"OnMinted", reflect.TypeFor[OnMinted]()},
	{"OnRegistryDeactivated", reflect.TypeFor[OnRegistryDeactivated]()},
	{"OnTransferred", reflect.TypeFor[OnTransferred]()},
	{"OnShopInitialized", reflect.TypeFor[OnShopInitialized]()},
	{"OnOrderCreated", reflect.TypeFor[OnOrderCreated]()},
	{"OnOrderPaid", reflect.TypeFor[OnOrderPaid]()},
	{"OnOrderCompleted", reflect.TypeFor[OnOrderCompleted]()},
	{"OnOperationRejected", reflect.TypeFor[OnOperationRejected]()},
}

// implementedInterfaces returns the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()
	emit(ctx, r, "OnInit", hooks, func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()
	emit(ctx, r, "OnShutdown", hooks, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitRegistryInitialized emits a registry initialized event.
func (r *Registry) EmitRegistryInitialized(ctx context.Context, reg *authority.Registry) {
	r.mu.RLock()
	hooks := r.onRegistryInitialized
	r.mu.RUnlock()
	emit(ctx, r, "OnRegistryInitialized", hooks, func(p OnRegistryInitialized) error {
		return p.OnRegistryInitialized(ctx, reg)
	})
}

// EmitMinted emits a minted event.
func (r *Registry) EmitMinted(ctx context.Context, reg *authority.Registry, to types.Identity, amount uint64) {
	r.mu.RLock()
	hooks := r.onMinted
	r.mu.RUnlock()
	emit(ctx, r, "OnMinted", hooks, func(p OnMinted) error {
		return p.OnMinted(ctx, reg, to, amount)
	})
}

// EmitRegistryDeactivated emits a registry deactivated event.
func (r *Registry) EmitRegistryDeactivated(ctx context.Context, reg *authority.Registry) {
	r.mu.RLock()
	hooks := r.onRegistryDeactivated
	r.mu.RUnlock()
	emit(ctx, r, "OnRegistryDeactivated", hooks, func(p OnRegistryDeactivated) error {
		return p.OnRegistryDeactivated(ctx, reg)
	})
}

// EmitTransferred emits a transferred event.
func (r *Registry) EmitTransferred(ctx context.Context, t Transfer) {
	r.mu.RLock()
	hooks := r.onTransferred
	r.mu.RUnlock()
	emit(ctx, r, "OnTransferred", hooks, func(p OnTransferred) error {
		return p.OnTransferred(ctx, t)
	})
}

// EmitShopInitialized emits a shop initialized event.
func (r *Registry) EmitShopInitialized(ctx context.Context, s *shop.Shop) {
	r.mu.RLock()
	hooks := r.onShopInitialized
	r.mu.RUnlock()
	emit(ctx, r, "OnShopInitialized", hooks, func(p OnShopInitialized) error {
		return p.OnShopInitialized(ctx, s)
	})
}

// EmitOrderCreated emits an order created event.
func (r *Registry) EmitOrderCreated(ctx context.Context, o *order.Order) {
	r.mu.RLock()
	hooks := r.onOrderCreated
	r.mu.RUnlock()
	emit(ctx, r, "OnOrderCreated", hooks, func(p OnOrderCreated) error {
		return p.OnOrderCreated(ctx, o)
	})
}

// EmitOrderPaid emits an order paid event.
func (r *Registry) EmitOrderPaid(ctx context.Context, o *order.Order) {
	r.mu.RLock()
	hooks := r.onOrderPaid
	r.mu.RUnlock()
	emit(ctx, r, "OnOrderPaid", hooks, func(p OnOrderPaid) error {
		return p.OnOrderPaid(ctx, o)
	})
}

// EmitOrderCompleted emits an order completed event.
func (r *Registry) EmitOrderCompleted(ctx context.Context, o *order.Order, seller types.Identity) {
	r.mu.RLock()
	hooks := r.onOrderCompleted
	r.mu.RUnlock()
	emit(ctx, r, "OnOrderCompleted", hooks, func(p OnOrderCompleted) error {
		return p.OnOrderCompleted(ctx, o, seller)
	})
}

// EmitOperationRejected emits an operation rejected event.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, caller types.Identity, err error) {
	r.mu.RLock()
	hooks := r.onOperationRejected
	r.mu.RUnlock()
	emit(ctx, r, "OnOperationRejected", hooks, func(p OnOperationRejected) error {
		return p.OnOperationRejected(ctx, op, caller, err)
	})
}

func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, call func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return call(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block an escrow operation.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
