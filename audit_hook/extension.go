// Package audithook bridges escrow lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a Recorder at wiring time,
// for example the Kafka recorder in the kafkarecorder subpackage or a
// RecorderFunc adapter.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/shop"
	"github.com/xraph/escrow/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnRegistryInitialized = (*Extension)(nil)
	_ plugin.OnMinted              = (*Extension)(nil)
	_ plugin.OnRegistryDeactivated = (*Extension)(nil)
	_ plugin.OnTransferred         = (*Extension)(nil)
	_ plugin.OnShopInitialized     = (*Extension)(nil)
	_ plugin.OnOrderCreated        = (*Extension)(nil)
	_ plugin.OnOrderPaid           = (*Extension)(nil)
	_ plugin.OnOrderCompleted      = (*Extension)(nil)
	_ plugin.OnOperationRejected   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges escrow lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Authority hooks
// ──────────────────────────────────────────────────

// OnRegistryInitialized implements plugin.OnRegistryInitialized.
func (e *Extension) OnRegistryInitialized(ctx context.Context, reg *authority.Registry) error {
	return e.record(ctx, ActionRegistryInitialized, SeverityInfo, OutcomeSuccess,
		ResourceRegistry, reg.MintID.String(), CategoryAuthority, reg.MintAuthority, nil,
		"mint_authority", string(reg.MintAuthority),
	)
}

// OnMinted implements plugin.OnMinted.
func (e *Extension) OnMinted(ctx context.Context, reg *authority.Registry, to types.Identity, amount uint64) error {
	return e.record(ctx, ActionTokensMinted, SeverityInfo, OutcomeSuccess,
		ResourceRegistry, reg.MintID.String(), CategoryAuthority, reg.MintAuthority, nil,
		"to", string(to),
		"amount", amount,
		"total_minted", reg.TotalMinted,
	)
}

// OnRegistryDeactivated implements plugin.OnRegistryDeactivated.
func (e *Extension) OnRegistryDeactivated(ctx context.Context, reg *authority.Registry) error {
	return e.record(ctx, ActionRegistryDeactivated, SeverityWarning, OutcomeSuccess,
		ResourceRegistry, reg.MintID.String(), CategoryAuthority, reg.MintAuthority, nil,
		"total_minted", reg.TotalMinted,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnTransferred implements plugin.OnTransferred. Sweeps are recorded under
// their own action.
func (e *Extension) OnTransferred(ctx context.Context, t plugin.Transfer) error {
	action := ActionTokensTransferred
	if t.Sweep {
		action = ActionTokensSwept
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "", CategoryTransfer, t.Authorizer, nil,
		"from", string(t.From),
		"to", string(t.To),
		"amount", t.Amount,
	)
}

// ──────────────────────────────────────────────────
// Shop and order hooks
// ──────────────────────────────────────────────────

// OnShopInitialized implements plugin.OnShopInitialized.
func (e *Extension) OnShopInitialized(ctx context.Context, s *shop.Shop) error {
	return e.record(ctx, ActionShopInitialized, SeverityInfo, OutcomeSuccess,
		ResourceShop, s.ID.String(), CategoryCommerce, s.Owner, nil,
		"owner", string(s.Owner),
	)
}

// OnOrderCreated implements plugin.OnOrderCreated.
func (e *Extension) OnOrderCreated(ctx context.Context, o *order.Order) error {
	return e.record(ctx, ActionOrderCreated, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderResourceID(o), CategoryCommerce, o.Buyer, nil,
		"shop_id", o.ShopID.String(),
		"product_id", o.ProductID,
		"quantity", o.Quantity,
		"total_amount", o.TotalAmount,
	)
}

// OnOrderPaid implements plugin.OnOrderPaid.
func (e *Extension) OnOrderPaid(ctx context.Context, o *order.Order) error {
	return e.record(ctx, ActionOrderPaid, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderResourceID(o), CategoryCustody, o.Buyer, nil,
		"shop_id", o.ShopID.String(),
		"escrowed", o.TotalAmount,
	)
}

// OnOrderCompleted implements plugin.OnOrderCompleted.
func (e *Extension) OnOrderCompleted(ctx context.Context, o *order.Order, seller types.Identity) error {
	return e.record(ctx, ActionOrderCompleted, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderResourceID(o), CategoryCustody, "", nil,
		"shop_id", o.ShopID.String(),
		"seller", string(seller),
		"released", o.TotalAmount,
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected. Authorization
// failures are recorded as critical access events.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, caller types.Identity, err error) error {
	severity, category := SeverityError, CategoryCommerce
	if escrow.IsAuthError(err) {
		severity, category = SeverityCritical, CategoryAccess
	}
	return e.record(ctx, ActionOperationRejected, severity, OutcomeFailure,
		ResourceLedger, "", category, caller, err,
		"operation", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func orderResourceID(o *order.Order) string {
	return strconv.FormatUint(o.ID, 10)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	actor types.Identity,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID().String(),
		Timestamp:  e.clock().UTC(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      string(actor),
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
