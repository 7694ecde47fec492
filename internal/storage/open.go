package storage

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

// Config selects and configures the durable backend.
type Config struct {
	Driver     string
	SQLitePath string
	MySQLDSN   string
	RedisURL   string
	Prefix     string
	CacheSize  int
}

// Open returns the configured backend. When it cannot be reached Open logs a
// warning and hands back a MemoryKV, so callers always get a working
// KeyValue and only lose durability.
func Open(ctx context.Context, cfg Config, log *slog.Logger) KeyValue {
	if log == nil {
		log = slog.Default()
	}

	kv, err := openDurable(ctx, cfg)
	if err != nil {
		log.Warn("durable storage unavailable, using in-memory storage",
			"driver", cfg.Driver, "error", err)
		return NewMemoryKV()
	}
	if kv == nil {
		log.Info("using in-memory storage")
		return NewMemoryKV()
	}

	log.Info("storage ready", "driver", cfg.Driver)
	if cfg.CacheSize <= 0 {
		return kv
	}
	cached, err := NewCachedKV(kv, cfg.CacheSize)
	if err != nil {
		log.Warn("storage cache disabled", "error", err)
		return kv
	}
	return cached
}

// openDurable returns nil, nil for the memory driver.
func openDurable(ctx context.Context, cfg Config) (KeyValue, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return nil, nil
	case DriverSQLite:
		return OpenGorm(ctx, DriverSQLite, cfg.SQLitePath)
	case DriverMySQL:
		return OpenGorm(ctx, DriverMySQL, cfg.MySQLDSN)
	case DriverRedis:
		return NewRedisKV(ctx, cfg.RedisURL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
