// Package readiness implements the readiness controller (C11): a
// one-shot gate signaling that the vector index's background preload
// has finished, successfully or not. Grounded directly on
// original_source/mcp_server.py's `_vector_ready = threading.Event()`
// pattern, whose preload goroutine signals in a deferred block
// regardless of outcome so readers never block indefinitely. Go's
// idiom for a one-shot broadcast event is a channel closed exactly
// once, which is what Gate wraps.
package readiness

import (
	"context"
	"sync"

	"lawretrieval/internal/logger"
)

// Gate is a one-shot readiness signal: closed exactly once, after
// which every waiter observes it immediately.
type Gate struct {
	once  sync.Once
	ready chan struct{}
	ok    bool
}

func NewGate() *Gate {
	return &Gate{ready: make(chan struct{})}
}

// Signal marks the gate ready, recording whether the preload
// succeeded. Only the first call has any effect.
func (g *Gate) Signal(ok bool) {
	g.once.Do(func() {
		g.ok = ok
		close(g.ready)
	})
}

// Wait blocks until the gate is signaled or ctx is done, whichever
// comes first. It returns whether the gate was signaled (vs. the
// context deadline/cancellation winning) and whether the preload it
// guards succeeded.
func (g *Gate) Wait(ctx context.Context) (signaled bool, ok bool) {
	select {
	case <-g.ready:
		return true, g.ok
	case <-ctx.Done():
		return false, false
	}
}

// Preloader is the background task the gate guards — typically the
// vector index's Load method.
type Preloader interface {
	Load(ctx context.Context) error
}

// StartPreload spawns a background goroutine that runs preloader.Load
// and signals the gate when it finishes, regardless of outcome, so a
// failed load downgrades vector search to a no-op rather than hanging
// every future Wait caller.
func StartPreload(ctx context.Context, gate *Gate, preloader Preloader) {
	go func() {
		err := preloader.Load(ctx)
		if err != nil {
			logger.Warn("readiness: vector index preload failed", "error", err.Error())
		}
		gate.Signal(err == nil)
	}()
}
