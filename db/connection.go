// Package db manages the Postgres connection and transaction scope for
// entitycore.
package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"go.uber.org/zap"

	"github.com/meridian-gis/entitycore/config"
	"github.com/meridian-gis/entitycore/errors"
)

// Open connects to Postgres with pooled settings from cfg and verifies the
// connection with a short ping. If logger is nil the pool operates silently.
func Open(cfg config.Database, logger *zap.SugaredLogger) (*sql.DB, error) {
	pool, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if logger != nil {
		logger.Infow("database opened",
			"max_open_conns", cfg.MaxOpenConns,
			"max_idle_conns", cfg.MaxIdleConns,
		)
	}
	return pool, nil
}
