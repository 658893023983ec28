package database

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/zippdf/zippdf/internal/config"
)

// Open returns the backend selected by the database config.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case config.DatabaseDriverMongo:
		log.Debug("connecting to mongodb", "database", cfg.Name)
		return NewMongo(ctx, cfg.URI, cfg.Name)
	case config.DatabaseDriverSQLite:
		log.Debug("opening sqlite database", "path", cfg.Path)
		return New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
