package storage

import (
	"context"
	"fmt"
	"net"

	"github.com/hilayankonsky/movemix/internal/config"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Backend is the persistence chosen by config, plus the clients it was built on.
// Redis is set whenever a redis host is configured, since the rate limiter uses it too.
type Backend struct {
	Persistence Persistence
	Redis       *redis.Client
	DB          *pgxpool.Pool
	Cache       *Cached
}

type OpenParams struct {
	Config           *config.Config
	RedisPassword    string
	PostgresUser     string
	PostgresPassword string
}

// Open builds the backend selected by cfg.StorageBackend.
func Open(ctx context.Context, params OpenParams) (*Backend, error) {
	cfg := params.Config
	b := &Backend{}

	if cfg.RedisHost != "" {
		b.Redis = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0,
		})
		if cfg.TracingEnabled {
			b.Redis.AddHook(redisotel.NewTracingHook())
		}
		if err := b.Redis.Ping(ctx).Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
			if cfg.StorageBackend == config.BackendRedis {
				b.Close()
				return nil, fmt.Errorf("ping redis: %w", err)
			}
			// redis is optional for the other backends
			_ = b.Redis.Close()
			b.Redis = nil
		}
	}

	var remote bool
	switch cfg.StorageBackend {
	case config.BackendMemory:
		b.Persistence = NewMemory()
	case config.BackendFile:
		disk, err := NewDisk(cfg.DataFilePath)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open disk storage: %w", err)
		}
		b.Persistence = disk
	case config.BackendRedis:
		b.Persistence = NewRedis(b.Redis)
		remote = true
	case config.BackendPostgres:
		db, err := NewDBPool(ctx, NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         params.PostgresUser,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: cfg.TracingEnabled,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.DB = db
		pg := NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Persistence = pg
		remote = true
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.StorageBackend)
	}

	if remote && cfg.CacheEnabled {
		b.Cache = NewCached(b.Persistence, cfg.CacheSizeMB, 0)
		b.Persistence = b.Cache
	}

	log.Debugf("storage: using [%s] backend, cache enabled: %t", cfg.StorageBackend, b.Cache != nil)
	return b, nil
}

func (b *Backend) Close() error {
	var err error
	if b.Redis != nil {
		err = multierr.Append(err, b.Redis.Close())
	}
	if b.DB != nil {
		b.DB.Close()
	}
	return err
}
