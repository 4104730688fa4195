package medium

import (
	"context"
	"errors"
	"log/slog"

	"blocknexus/pkg/platform/circuit"
	"blocknexus/pkg/platform/sentinel"
)

// Guarded wraps a networked medium with a circuit breaker that counts
// ErrUnavailable results. Calls always reach the inner medium; the breaker only
// decides what Healthy reports.
type Guarded struct {
	inner   Medium
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuarded wraps inner. A nil logger falls back to slog.Default.
func NewGuarded(inner Medium, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{inner: inner, breaker: breaker, logger: logger}
}

// Healthy is false while the breaker is open.
func (g *Guarded) Healthy() bool {
	return !g.breaker.IsOpen()
}

func (g *Guarded) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := g.inner.GetItem(ctx, key)
	g.record(ctx, err)
	return value, ok, err
}

func (g *Guarded) SetItem(ctx context.Context, key, value string) error {
	err := g.inner.SetItem(ctx, key, value)
	g.record(ctx, err)
	return err
}

func (g *Guarded) RemoveItem(ctx context.Context, key string) error {
	err := g.inner.RemoveItem(ctx, key)
	g.record(ctx, err)
	return err
}

// record ignores quota errors: a full medium is still reachable.
func (g *Guarded) record(ctx context.Context, err error) {
	switch {
	case err == nil:
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "storage medium recovered", "medium", g.breaker.Name())
		}
	case errors.Is(err, sentinel.ErrUnavailable):
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.ErrorContext(ctx, "storage medium unavailable", "medium", g.breaker.Name(), "error", err)
		}
	}
}
