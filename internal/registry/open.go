package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"pestwatch/internal/config"
)

// Open constructs the repository selected by configuration. The returned
// close function releases backend resources; for the memory backend it is a
// no-op.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Repository, func(), error) {
	switch cfg.Driver {
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
		if err != nil {
			return nil, nil, fmt.Errorf("registry: parse postgres config: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxConns)
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("registry: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("registry: ping postgres: %w", err)
		}
		logger.InfoContext(ctx, "subscription registry ready", "driver", "postgres")
		return NewPostgresRepository(pool), pool.Close, nil

	case "sqlite":
		repo, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.InfoContext(ctx, "subscription registry ready", "driver", "sqlite", "path", cfg.SQLitePath)
		return repo, func() { _ = repo.Close() }, nil

	case "memory":
		logger.InfoContext(ctx, "subscription registry ready", "driver", "memory")
		return NewMemoryRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("registry: unknown driver %q", cfg.Driver)
	}
}
