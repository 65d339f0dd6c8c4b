package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/adapters/sqlstore"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
	"github.com/aretw0/waypoint/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Backing is an opened store together with the engine options it needs.
type Backing struct {
	Store   ports.WorkflowStore
	Options []waypoint.Option
	close   func() error
}

// Close releases the store's connections.
func (b *Backing) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore builds the configured store. The redis backend also installs a distributed
// locker so several replicas can share one database. With an encryption key the store is
// wrapped so message texts are sealed at rest.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backing, error) {
	b, err := openBacking(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	active, fallback, err := cfg.Store.Keys()
	if err != nil || active == nil {
		if err != nil {
			_ = b.Close()
		}
		return b, err
	}

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = middleware.Wrap(b.Store, mw)
	// Later options win, so this replaces the bare store.
	b.Options = append(b.Options, waypoint.WithStore(b.Store))
	logger.Info("message encryption enabled", "fallback_keys", len(fallback))
	return b, nil
}

func openBacking(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backing, error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case BackendMemory, "":
		s := memory.NewStore()
		return &Backing{Store: s, Options: []waypoint.Option{waypoint.WithStore(s)}}, nil

	case BackendFile:
		s := file.New(cfg.Store.Path)
		return &Backing{Store: s, Options: []waypoint.Option{waypoint.WithStore(s)}}, nil

	case BackendSQLite:
		path := cfg.Store.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "waypoint.db")
		}
		s, err := sqlstore.OpenSQLite(ctx, path, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &Backing{Store: s, Options: []waypoint.Option{waypoint.WithStore(s)}, close: s.Close}, nil

	case BackendMySQL:
		s, err := sqlstore.OpenMySQL(ctx, cfg.Store.DSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &Backing{Store: s, Options: []waypoint.Option{waypoint.WithStore(s)}, close: s.Close}, nil

	case BackendRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		s := redis.NewFromClient(client, redis.WithPrefix(cfg.Redis.Prefix), redis.WithLogger(logger))
		return &Backing{
			Store: s,
			Options: []waypoint.Option{
				waypoint.WithStore(s),
				waypoint.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix)),
				waypoint.WithLockTTL(cfg.Lock.TTL),
			},
			close: client.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
