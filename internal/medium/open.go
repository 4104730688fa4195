package medium

import (
	"context"
	"fmt"
	"log/slog"

	"blocknexus/internal/platform/config"
	"blocknexus/internal/platform/postgres"
	"blocknexus/internal/platform/redis"
	"blocknexus/pkg/platform/circuit"
)

// HealthReporter is implemented by media that track their own reachability.
type HealthReporter interface {
	Healthy() bool
}

// Open builds the medium selected by cfg.Backend. Networked media come wrapped
// in Guarded. The returned close func releases any client the medium holds and
// is never nil.
func Open(ctx context.Context, cfg config.Server, logger *slog.Logger) (Medium, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemory(WithQuota(cfg.Storage.QuotaBytes)), noop, nil
	case config.BackendFile:
		f, err := NewFile(cfg.Storage.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return NewGuarded(NewRedis(client.Client), circuit.New(config.BackendRedis), logger), client.Close, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		pg := NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("migrate kv store: %w", err)
		}
		return NewGuarded(pg, circuit.New(config.BackendPostgres), logger), db.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
