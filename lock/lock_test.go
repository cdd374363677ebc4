package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalSerializes(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "order:1")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders: got %d, want 1", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Errorf("expected lock table to drain, %d entries left", len(l.locks))
	}
}

func TestLocalIndependentKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	r1, err := l.Lock(ctx, "order:1")
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	r2, err := l.Lock(ctx2, "order:2")
	if err != nil {
		t.Fatalf("distinct key blocked: %v", err)
	}
	r2()
}

func TestLocalContextCancel(t *testing.T) {
	l := NewLocal()

	release, _ := l.Lock(context.Background(), "registry:x")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(ctx, "registry:x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewLocal()
	release, _ := l.Lock(context.Background(), "k")
	release()
	release()

	again, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	again()
}

func TestKeys(t *testing.T) {
	if got := OrderKey(0); got != "order:0" {
		t.Errorf("OrderKey(0) = %q", got)
	}
	if got := OrderKey(18446744073709551615); got != "order:18446744073709551615" {
		t.Errorf("OrderKey(max) = %q", got)
	}
	if got := RegistryKey("mint_abc"); got != "registry:mint_abc" {
		t.Errorf("RegistryKey = %q", got)
	}
}
