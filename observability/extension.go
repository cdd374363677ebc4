// Package observability provides a metrics extension for the escrow engine
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnRegistryInitialized = (*MetricsExtension)(nil)
	_ plugin.OnMinted              = (*MetricsExtension)(nil)
	_ plugin.OnRegistryDeactivated = (*MetricsExtension)(nil)
	_ plugin.OnTransferred         = (*MetricsExtension)(nil)
	_ plugin.OnShopInitialized     = (*MetricsExtension)(nil)
	_ plugin.OnOrderCreated        = (*MetricsExtension)(nil)
	_ plugin.OnOrderPaid           = (*MetricsExtension)(nil)
	_ plugin.OnOrderCompleted      = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to track mint, transfer and order activity.
type MetricsExtension struct {
	factory MetricFactory

	// Authority metrics
	RegistryInitialized Counter
	RegistryDeactivated Counter
	TokensMinted        Counter
	MintAmount          Histogram

	// Transfer metrics
	Transfers      Counter
	TransferAmount Histogram
	Sweeps         Counter

	// Order metrics
	ShopInitialized Counter
	OrderCreated    Counter
	OrderPaid       Counter
	OrderCompleted  Counter
	OrderTotal      Histogram
	EscrowReleased  Counter

	// Error metrics
	OperationRejected Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Authority metrics
		RegistryInitialized: factory.Counter("escrow.registry.initialized"),
		RegistryDeactivated: factory.Counter("escrow.registry.deactivated"),
		TokensMinted:        factory.Counter("escrow.tokens.minted"),
		MintAmount:          factory.Histogram("escrow.mint.amount"),

		// Transfer metrics
		Transfers:      factory.Counter("escrow.transfer.count"),
		TransferAmount: factory.Histogram("escrow.transfer.amount"),
		Sweeps:         factory.Counter("escrow.sweep.count"),

		// Order metrics
		ShopInitialized: factory.Counter("escrow.shop.initialized"),
		OrderCreated:    factory.Counter("escrow.order.created"),
		OrderPaid:       factory.Counter("escrow.order.paid"),
		OrderCompleted:  factory.Counter("escrow.order.completed"),
		OrderTotal:      factory.Histogram("escrow.order.total_amount"),
		EscrowReleased:  factory.Counter("escrow.tokens.released"),

		// Error metrics
		OperationRejected: factory.Counter("escrow.operation.rejected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Authority hooks
// ──────────────────────────────────────────────────

// OnRegistryInitialized implements plugin.OnRegistryInitialized.
func (m *MetricsExtension) OnRegistryInitialized(_ context.Context, _ *authority.Registry) error {
	m.RegistryInitialized.Inc()
	return nil
}

// OnMinted implements plugin.OnMinted.
func (m *MetricsExtension) OnMinted(_ context.Context, _ *authority.Registry, _ types.Identity, amount uint64) error {
	m.TokensMinted.Add(float64(amount))
	m.MintAmount.Observe(float64(amount))
	return nil
}

// OnRegistryDeactivated implements plugin.OnRegistryDeactivated.
func (m *MetricsExtension) OnRegistryDeactivated(_ context.Context, _ *authority.Registry) error {
	m.RegistryDeactivated.Inc()
	return nil
}

// OnTransferred implements plugin.OnTransferred.
func (m *MetricsExtension) OnTransferred(_ context.Context, t plugin.Transfer) error {
	if t.Sweep {
		m.Sweeps.Inc()
	}
	m.Transfers.Inc()
	m.TransferAmount.Observe(float64(t.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Shop and order hooks
// ──────────────────────────────────────────────────

// OnShopInitialized implements plugin.OnShopInitialized.
func (m *MetricsExtension) OnShopInitialized(_ context.Context, _ *shop.Shop) error {
	m.ShopInitialized.Inc()
	return nil
}

// OnOrderCreated implements plugin.OnOrderCreated.
func (m *MetricsExtension) OnOrderCreated(_ context.Context, o *order.Order) error {
	m.OrderCreated.Inc()
	m.OrderTotal.Observe(float64(o.TotalAmount))
	return nil
}

// OnOrderPaid implements plugin.OnOrderPaid.
func (m *MetricsExtension) OnOrderPaid(_ context.Context, _ *order.Order) error {
	m.OrderPaid.Inc()
	return nil
}

// OnOrderCompleted implements plugin.OnOrderCompleted.
func (m *MetricsExtension) OnOrderCompleted(_ context.Context, o *order.Order, _ types.Identity) error {
	m.OrderCompleted.Inc()
	m.EscrowReleased.Add(float64(o.TotalAmount))
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ types.Identity, _ error) error {
	m.OperationRejected.Inc()
	return nil
}
