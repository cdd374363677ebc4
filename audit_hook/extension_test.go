package audithook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/escrow"
	audithook "github.com/xraph/escrow/audit_hook"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/plugin"
)

type captured struct {
	events []*audithook.AuditEvent
}

func (c *captured) recorder() audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
		c.events = append(c.events, evt)
		return nil
	})
}

var fixed = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMintedEvent(t *testing.T) {
	c := &captured{}
	ext := audithook.New(c.recorder(), audithook.WithClock(func() time.Time { return fixed }))

	reg := authority.New(id.NewMintID(), "authority-1", fixed)
	reg.TotalMinted = 1500
	require.NoError(t, ext.OnMinted(context.Background(), reg, "alice", 500))

	require.Len(t, c.events, 1)
	evt := c.events[0]
	assert.Equal(t, audithook.ActionTokensMinted, evt.Action)
	assert.Equal(t, reg.MintID.String(), evt.ResourceID)
	assert.Equal(t, "authority-1", evt.Actor)
	assert.Equal(t, fixed, evt.Timestamp)
	assert.Equal(t, uint64(500), evt.Metadata["amount"])
	assert.Equal(t, uint64(1500), evt.Metadata["total_minted"])

	_, err := id.ParseAuditID(evt.ID)
	assert.NoError(t, err)
}

func TestSweepUsesOwnAction(t *testing.T) {
	c := &captured{}
	ext := audithook.New(c.recorder())

	require.NoError(t, ext.OnTransferred(context.Background(), plugin.Transfer{
		From: "treasury", To: "cold", Amount: 10, Authorizer: "treasury", Sweep: true,
	}))
	require.NoError(t, ext.OnTransferred(context.Background(), plugin.Transfer{
		From: "a", To: "b", Amount: 1, Authorizer: "a",
	}))

	require.Len(t, c.events, 2)
	assert.Equal(t, audithook.ActionTokensSwept, c.events[0].Action)
	assert.Equal(t, audithook.ActionTokensTransferred, c.events[1].Action)
}

func TestRejectedAuthErrorIsCritical(t *testing.T) {
	c := &captured{}
	ext := audithook.New(c.recorder())

	require.NoError(t, ext.OnOperationRejected(context.Background(), "mint", "mallory", escrow.ErrUnauthorized))
	require.NoError(t, ext.OnOperationRejected(context.Background(), "create_order", "bob", escrow.ErrMathOverflow))

	require.Len(t, c.events, 2)
	assert.Equal(t, audithook.SeverityCritical, c.events[0].Severity)
	assert.Equal(t, audithook.CategoryAccess, c.events[0].Category)
	assert.Equal(t, audithook.OutcomeFailure, c.events[0].Outcome)
	assert.Equal(t, "mint", c.events[0].Metadata["operation"])
	assert.Equal(t, audithook.SeverityError, c.events[1].Severity)
	assert.Equal(t, escrow.ErrMathOverflow.Error(), c.events[1].Reason)
}

func TestEnabledActionsFilter(t *testing.T) {
	c := &captured{}
	ext := audithook.New(c.recorder(), audithook.WithEnabledActions(audithook.ActionOrderPaid))

	o := &order.Order{ID: 7, ShopID: id.NewShopID(), Buyer: "bob", TotalAmount: 100}
	require.NoError(t, ext.OnOrderCreated(context.Background(), o))
	require.NoError(t, ext.OnOrderPaid(context.Background(), o))

	require.Len(t, c.events, 1)
	assert.Equal(t, audithook.ActionOrderPaid, c.events[0].Action)
	assert.Equal(t, "7", c.events[0].ResourceID)
}

func TestDisabledActionsFilter(t *testing.T) {
	c := &captured{}
	ext := audithook.New(c.recorder(), audithook.WithDisabledActions(audithook.ActionOrderCreated))

	o := &order.Order{ID: 8, ShopID: id.NewShopID(), Buyer: "bob"}
	require.NoError(t, ext.OnOrderCreated(context.Background(), o))
	require.NoError(t, ext.OnOrderCompleted(context.Background(), o, "seller"))

	require.Len(t, c.events, 1)
	assert.Equal(t, audithook.ActionOrderCompleted, c.events[0].Action)
	assert.Equal(t, "seller", c.events[0].Metadata["seller"])
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))

	reg := authority.New(id.NewMintID(), "authority-1", fixed)
	assert.NoError(t, ext.OnRegistryDeactivated(context.Background(), reg))
}
