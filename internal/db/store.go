// internal/db/store.go
package db

import (
	"fmt"

	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/store"
)

const redisKeyPrefix = "coldmail"

// OpenStore builds the configured key-value backend. For postgres the
// pending migrations are applied first. The returned close func releases
// the underlying connection.
func OpenStore(cfg *config.Config, log *logger.Logger) (store.Store, func() error, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemory(), func() error { return nil }, nil

	case "postgres":
		conn, err := OpenPostgres(cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		applied, err := ApplyMigrations(conn)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		if applied {
			log.Info().Msg("database migrations applied")
		} else {
			log.Info().Msg("no database migrations to apply")
		}
		return store.NewPostgres(conn), conn.Close, nil

	case "redis":
		client, err := OpenRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("connected to redis")
		return store.NewRedis(client, redisKeyPrefix), client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
