package sqlite

import (
	"math"
	"testing"
	"time"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/order"
)

func TestOrderModelKeepsFullRange(t *testing.T) {
	o, ok := order.New(id.NewShopID(), "buyer", order.Params{ID: math.MaxUint64, Quantity: 1, PricePerItem: math.MaxUint64}, time.Now())
	if !ok {
		t.Fatal("unexpected overflow")
	}

	got, err := fromOrderModel(toOrderModel(o))
	if err != nil {
		t.Fatalf("fromOrderModel: %v", err)
	}
	if got.ID != o.ID || got.TotalAmount != o.TotalAmount || got.Status != order.StatusPending {
		t.Errorf("got %+v, want %+v", got, o)
	}
}

func TestOrderModelRejectsUnknownStatus(t *testing.T) {
	o, _ := order.New(id.NewShopID(), "buyer", order.Params{ID: 1, Quantity: 1, PricePerItem: 1}, time.Now())
	m := toOrderModel(o)
	m.Status = "shipped"

	if _, err := fromOrderModel(m); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
