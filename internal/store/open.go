package store

import (
	"context"
	"fmt"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/internal/database"
	"github.com/canvasboard/backend/pkg/logger"
)

// Open returns the store selected by cfg.Driver. For mongo it connects,
// pings and, when configured, creates the declared indexes.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("store_memory_driver", map[string]interface{}{
			"detail": "data is kept in process memory and lost on restart",
		})
		return NewMemoryStore(), nil
	case "mongo", "":
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	client, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewMongoStore(client, cfg.Name, cfg.Transactions)

	if cfg.EnsureIndexes {
		created, err := database.EnsureIndexes(ctx, s.Database())
		if err != nil {
			_ = s.Close(context.Background())
			return nil, err
		}
		logger.Info("database_indexes_ensured", map[string]interface{}{
			"database": cfg.Name,
			"indexes":  created,
		})
	}

	logger.Info("database_connected", map[string]interface{}{
		"database":     cfg.Name,
		"transactions": cfg.Transactions,
	})
	return s, nil
}
