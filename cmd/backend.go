package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/personar/profile-service/internal/core/ports"
	mongodb "github.com/personar/profile-service/internal/infrastructure/db/mongo"
	pgstore "github.com/personar/profile-service/internal/infrastructure/db/postgres"
	rediscache "github.com/personar/profile-service/internal/infrastructure/db/redis"
	"github.com/personar/profile-service/internal/infrastructure/http/handlers"
	"github.com/personar/profile-service/internal/infrastructure/vectorindex"
	"github.com/personar/profile-service/internal/pkg/config"
	"github.com/personar/profile-service/pkg/logger"
)

// backend holds the stores shared by the serve and reindex commands.
type backend struct {
	cfg   *config.Config
	log   zerolog.Logger
	mongo *mongo.Client
	db    *mongo.Database
	redis *redis.Client
	pg    *sql.DB
	users *mongodb.UserRepository
	index ports.VectorIndex
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{cfg: cfg, log: logger.Component("bootstrap")}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	b.mongo, b.db = client, db

	b.users = mongodb.NewUserRepository(db)
	if err := b.users.EnsureIndexes(ctx); err != nil {
		b.close(ctx)
		return nil, fmt.Errorf("user indexes: %w", err)
	}

	if cfg.Redis.Enabled {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			b.close(ctx)
			return nil, err
		}
		b.redis = rdb
	}

	if err := b.openIndex(ctx); err != nil {
		b.close(ctx)
		return nil, err
	}

	b.log.Info().
		Str("vector_backend", cfg.Vector.Backend).
		Bool("profile_cache", b.redis != nil).
		Msg("stores connected")
	return b, nil
}

func (b *backend) openIndex(ctx context.Context) error {
	n := b.cfg.Vector.NumCandidates

	switch b.cfg.Vector.Backend {
	case config.BackendAtlas:
		idx := mongodb.NewVectorIndex(b.db, b.cfg.Vector.AtlasIndex, n, logger.Component("atlas"))
		if err := idx.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("embedding indexes: %w", err)
		}
		b.index = idx

	case config.BackendPGVector:
		pg, err := pgstore.Connect(ctx, pgstore.Config{URL: b.cfg.Postgres.URL, MaxOpenConns: 10, MaxIdleConns: 5})
		if err != nil {
			return err
		}
		b.pg = pg
		if err := pgstore.Migrate(ctx, pg); err != nil {
			return err
		}
		b.index = pgstore.NewVectorIndex(pg, n)

	default:
		b.index = vectorindex.NewHNSWIndex(n)
	}
	return nil
}

// persistent reports whether the index outlives the process.
func (b *backend) persistent() bool {
	return b.cfg.Vector.Backend != config.BackendMemory
}

// pingers lists the stores checked by the readiness endpoint.
func (b *backend) pingers() map[string]handlers.Pinger {
	deps := map[string]handlers.Pinger{"mongodb": handlers.MongoPinger(b.db)}
	if b.redis != nil {
		deps["redis"] = handlers.RedisPinger(b.redis)
	}
	if b.pg != nil {
		deps["postgres"] = handlers.SQLPinger(b.pg)
	}
	return deps
}

func (b *backend) close(ctx context.Context) {
	if b.pg != nil {
		_ = b.pg.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.mongo != nil {
		if err := mongodb.Disconnect(ctx, b.mongo); err != nil {
			b.log.Warn().Err(err).Msg("closing user store")
		}
	}
}
