package types

import (
	"math"
	"testing"
	"time"
)

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		op     func() (uint64, bool)
		want   uint64
		wantOK bool
	}{
		{"Add", func() (uint64, bool) { return CheckedAdd(100, 200) }, 300, true},
		{"Add at max", func() (uint64, bool) { return CheckedAdd(math.MaxUint64-1, 1) }, math.MaxUint64, true},
		{"Add overflow", func() (uint64, bool) { return CheckedAdd(math.MaxUint64, 1) }, 0, false},
		{"Sub", func() (uint64, bool) { return CheckedSub(500, 200) }, 300, true},
		{"Sub to zero", func() (uint64, bool) { return CheckedSub(7, 7) }, 0, true},
		{"Sub underflow", func() (uint64, bool) { return CheckedSub(1, 2) }, math.MaxUint64, false},
		{"Mul", func() (uint64, bool) { return CheckedMul(2, 50) }, 100, true},
		{"Mul by zero", func() (uint64, bool) { return CheckedMul(0, math.MaxUint64) }, 0, true},
		{"Mul overflow", func() (uint64, bool) { return CheckedMul(1<<32, 1<<32) }, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.op()
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWholeUnits(t *testing.T) {
	got, ok := WholeUnits(500, DefaultDecimals)
	if !ok {
		t.Fatal("unexpected overflow")
	}
	if got != 500_000_000_000 {
		t.Errorf("got %d, want 500000000000", got)
	}

	if _, ok := WholeUnits(math.MaxUint64, 1); ok {
		t.Error("expected overflow")
	}
	if _, ok := WholeUnits(1, 20); ok {
		t.Error("expected overflow for 10^20 scale")
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{500_000_000_000, 9, "500.000000000"},
		{1_500_000_000, 9, "1.500000000"},
		{1, 9, "0.000000001"},
		{0, 2, "0.00"},
		{4900, 2, "49.00"},
		{42, 0, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatUnits(tt.amount, tt.decimals); got != tt.want {
				t.Errorf("FormatUnits(%d, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	if !Identity("").IsZero() || !Identity("  ").IsZero() {
		t.Error("blank identities should be zero")
	}
	if Identity("buyer").IsZero() {
		t.Error("non-blank identity reported zero")
	}
	if got := Identity("abcdefghijklmnopqrstuvwxyz").Short(); got != "abcdef..wxyz" {
		t.Errorf("Short: got %q", got)
	}
	if got := Identity("seller").Short(); got != "seller" {
		t.Errorf("Short: got %q", got)
	}
}

func TestEntityAt(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	e := NewEntityAt(ts)
	if !e.CreatedAt.Equal(ts) || e.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt: got %v", e.CreatedAt)
	}
	if !e.UpdatedAt.Equal(e.CreatedAt) {
		t.Error("UpdatedAt should equal CreatedAt on creation")
	}

	later := ts.Add(time.Hour)
	e.TouchAt(later)
	if !e.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt: got %v, want %v", e.UpdatedAt, later)
	}
	if !e.CreatedAt.Equal(ts) {
		t.Error("TouchAt must not change CreatedAt")
	}
}
