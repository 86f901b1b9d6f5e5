package readiness

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePreloader struct {
	err   error
	delay time.Duration
}

func (f *fakePreloader) Load(ctx context.Context) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.err
}

func TestGate_SignalThenWaitReturnsImmediately(t *testing.T) {
	g := NewGate()
	g.Signal(true)

	signaled, ok := g.Wait(context.Background())
	if !signaled || !ok {
		t.Errorf("Wait() = (%v, %v), want (true, true)", signaled, ok)
	}
}

func TestGate_SignalIsIdempotent(t *testing.T) {
	g := NewGate()
	g.Signal(true)
	g.Signal(false) // must not panic or change the recorded outcome

	_, ok := g.Wait(context.Background())
	if !ok {
		t.Error("first Signal call should win; recorded outcome should stay true")
	}
}

func TestGate_WaitTimesOutBeforeSignal(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	signaled, _ := g.Wait(ctx)
	if signaled {
		t.Error("expected Wait to time out before the gate was signaled")
	}
}

func TestStartPreload_AlwaysSignalsOnFailure(t *testing.T) {
	g := NewGate()
	StartPreload(context.Background(), g, &fakePreloader{err: errors.New("boom")})

	signaled, ok := g.Wait(context.Background())
	if !signaled {
		t.Fatal("expected the gate to be signaled even though preload failed")
	}
	if ok {
		t.Error("expected ok=false after a failed preload")
	}
}

func TestStartPreload_SignalsOnSuccess(t *testing.T) {
	g := NewGate()
	StartPreload(context.Background(), g, &fakePreloader{})

	_, ok := g.Wait(context.Background())
	if !ok {
		t.Error("expected ok=true after a successful preload")
	}
}
