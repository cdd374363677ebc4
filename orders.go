package escrow

import (
	"context"
	"fmt"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/lock"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/types"
)

// CreateOrder records a pending order from buyer against shopID. The total
// is quantity times price, rejected with ErrMathOverflow if it does not fit.
// The shop's order counter advances in the same store operation.
func (e *Engine) CreateOrder(ctx context.Context, shopID id.ShopID, buyer types.Identity, p order.Params) (*order.Order, error) {
	const op = "create_order"

	switch {
	case buyer.IsZero():
		return nil, e.reject(ctx, op, buyer, ValidationError{Field: "buyer", Message: "must not be empty"})
	case p.Quantity == 0:
		return nil, e.reject(ctx, op, buyer, ValidationError{Field: "quantity", Message: "must be positive"})
	}

	o, ok := order.New(shopID, buyer, p, e.clock())
	if !ok {
		return nil, e.reject(ctx, op, buyer, ErrMathOverflow)
	}

	release, err := e.locker.Lock(ctx, lock.OrderKey(p.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	sh, err := e.store.GetShop(ctx, shopID)
	if err != nil {
		return nil, e.reject(ctx, op, buyer, err)
	}
	if !sh.Active {
		return nil, e.reject(ctx, op, buyer, fmt.Errorf("%w: shop %s", ErrInactive, shopID))
	}

	if err := e.store.CreateOrder(ctx, o); err != nil {
		return nil, e.reject(ctx, op, buyer, err)
	}

	e.logger.Info("order created",
		"order_id", o.ID,
		"shop_id", shopID,
		"buyer", buyer,
		"total_amount", o.TotalAmount,
	)
	e.plugins.EmitOrderCreated(ctx, o)

	return o, nil
}

// GetOrder retrieves an order by ID.
func (e *Engine) GetOrder(ctx context.Context, orderID uint64) (*order.Order, error) {
	return e.store.GetOrder(ctx, orderID)
}

// ListOrders lists orders.
func (e *Engine) ListOrders(ctx context.Context, opts order.ListOpts) ([]*order.Order, error) {
	return e.store.ListOrders(ctx, opts)
}

// ProcessPayment moves the order total from the buyer into escrow and marks
// the order paid. Ledger failures are returned unchanged in meaning and
// leave the order pending.
func (e *Engine) ProcessPayment(ctx context.Context, orderID uint64, buyer types.Identity) error {
	const op = "process_payment"

	release, err := e.locker.Lock(ctx, lock.OrderKey(orderID))
	if err != nil {
		return err
	}
	defer release()

	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return e.reject(ctx, op, buyer, err)
	}
	if !o.Status.CanTransitionTo(order.StatusPaid) {
		return e.reject(ctx, op, buyer, fmt.Errorf("%w: order %d is %s", ErrInvalidState, orderID, o.Status))
	}
	if buyer != o.Buyer {
		return e.reject(ctx, op, buyer, ErrUnauthorized)
	}

	if err := e.ledger.Transfer(ctx, buyer, e.vault.Account(), o.TotalAmount, buyer); err != nil {
		return e.reject(ctx, op, buyer, fmt.Errorf("escrow: ledger transfer: %w", err))
	}

	if err := e.commitTransition(ctx, o, order.StatusPaid); err != nil {
		return err
	}

	e.logger.Info("order paid",
		"order_id", o.ID,
		"buyer", buyer,
		"amount", o.TotalAmount,
	)
	e.plugins.EmitOrderPaid(ctx, o)

	return nil
}

// CompleteOrder releases the escrowed total to the shop owner and marks the
// order completed. The release is signed by the derived escrow authority.
func (e *Engine) CompleteOrder(ctx context.Context, orderID uint64) error {
	const op = "complete_order"

	release, err := e.locker.Lock(ctx, lock.OrderKey(orderID))
	if err != nil {
		return err
	}
	defer release()

	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return e.reject(ctx, op, "", err)
	}
	if !o.Status.CanTransitionTo(order.StatusCompleted) {
		return e.reject(ctx, op, "", fmt.Errorf("%w: order %d is %s", ErrInvalidState, orderID, o.Status))
	}

	sh, err := e.store.GetShop(ctx, o.ShopID)
	if err != nil {
		return e.reject(ctx, op, "", err)
	}

	if err := e.vault.Release(ctx, e.ledger, sh.Owner, o.TotalAmount); err != nil {
		return e.reject(ctx, op, "", fmt.Errorf("escrow: ledger release: %w", err))
	}

	if err := e.commitTransition(ctx, o, order.StatusCompleted); err != nil {
		return err
	}

	e.logger.Info("order completed",
		"order_id", o.ID,
		"seller", sh.Owner,
		"amount", o.TotalAmount,
	)
	e.plugins.EmitOrderCompleted(ctx, o, sh.Owner)

	return nil
}

// commitTransition records a status change after its ledger effect has
// been applied.
func (e *Engine) commitTransition(ctx context.Context, o *order.Order, to order.Status) error {
	from := o.Status
	at := e.clock()
	if err := e.store.TransitionOrder(ctx, o.ID, from, to, at); err != nil {
		e.logger.Error("ledger effect applied but order status not committed",
			"order_id", o.ID,
			"from", from,
			"to", to,
			"error", err,
		)
		return fmt.Errorf("%w: order %d: %w", ErrStateNotCommitted, o.ID, err)
	}

	o.Status = to
	o.TouchAt(at)
	return nil
}

// reject logs a failed operation, notifies plugins, and returns err.
func (e *Engine) reject(ctx context.Context, op string, caller types.Identity, err error) error {
	e.logger.Warn("escrow operation rejected",
		"op", op,
		"caller", caller,
		"error", err,
	)
	e.plugins.EmitOperationRejected(ctx, op, caller, err)
	return err
}
