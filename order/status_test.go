package order

import (
	"math"
	"testing"
	"time"

	"github.com/xraph/escrow/id"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPaid, StatusCompleted, true},
		{StatusPending, StatusCompleted, false},
		{StatusPaid, StatusPending, false},
		{StatusCompleted, StatusPaid, false},
		{StatusPending, StatusCancelled, false},
		{StatusPaid, StatusRefunded, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("paid"); err != nil || s != StatusPaid {
		t.Errorf("ParseStatus(paid) = %q, %v", s, err)
	}
	if _, err := ParseStatus("shipped"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestNew(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	shopID := id.NewShopID()

	o, ok := New(shopID, "buyer", Params{ID: 1, ProductID: 9, Quantity: 2, PricePerItem: 50}, at)
	if !ok {
		t.Fatal("unexpected overflow")
	}
	if o.TotalAmount != 100 || o.Status != StatusPending || !o.CreatedAt.Equal(at) {
		t.Errorf("unexpected order: %+v", o)
	}

	if _, ok := New(shopID, "buyer", Params{ID: 2, Quantity: math.MaxUint64, PricePerItem: 2}, at); ok {
		t.Error("expected overflow")
	}
}
