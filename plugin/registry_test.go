package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/escrow/order"
	"github.com/xraph/escrow/types"
)

type recordingPlugin struct {
	mu     sync.Mutex
	name   string
	orders []uint64
	errs   []error
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnOrderCreated(_ context.Context, o *order.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, o.ID)
	return nil
}

func (p *recordingPlugin) OnOperationRejected(_ context.Context, _ string, _ types.Identity, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
	return errors.New("recorder unavailable")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnOrderPaid(ctx context.Context, _ *order.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterDuplicate(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recordingPlugin{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count: got %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("b") != nil {
		t.Error("Get returned unexpected result")
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	r := quietRegistry()
	p := &recordingPlugin{name: "rec"}
	_ = r.Register(p)

	ctx := context.Background()
	r.EmitOrderCreated(ctx, &order.Order{ID: 7})
	r.EmitOrderPaid(ctx, &order.Order{ID: 7})

	if len(p.orders) != 1 || p.orders[0] != 7 {
		t.Errorf("orders: got %v", p.orders)
	}
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	r := quietRegistry()
	p := &recordingPlugin{name: "rec"}
	_ = r.Register(p)

	cause := errors.New("boom")
	r.EmitOperationRejected(context.Background(), "mint", "alice", cause)

	if len(p.errs) != 1 || !errors.Is(p.errs[0], cause) {
		t.Errorf("errs: got %v", p.errs)
	}
}

func TestHookTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(10 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	done := make(chan struct{})
	go func() {
		r.EmitOrderPaid(context.Background(), &order.Order{ID: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EmitOrderPaid blocked past the hook timeout")
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&recordingPlugin{name: "rec"})
	want := map[string]bool{"OnOrderCreated": true, "OnOperationRejected": true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected interface %q", name)
		}
	}
}
