package storage

import (
	"context"
	"fmt"

	"github.com/kingrea/chathub/internal/config"
)

// Open builds the store selected by the project's storage.driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage: nil config")
	}
	sc := cfg.Project.Storage
	switch sc.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverFile, "":
		return NewFile(cfg.StateDir())
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath())
	case config.DriverRedis:
		return NewRedis(ctx, sc.Addr, sc.Prefix)
	case config.DriverPostgres:
		return NewPostgres(ctx, sc.DSN)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", sc.Driver)
	}
}
