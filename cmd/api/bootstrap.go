package main

import (
	"context"
	"fmt"

	"github.com/abduss/filedrop/internal/config"
	"github.com/abduss/filedrop/internal/file"
	"github.com/abduss/filedrop/internal/server"
	"github.com/abduss/filedrop/internal/storage"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// recordStore is implemented by every metadata backend.
type recordStore interface {
	Create(ctx context.Context, rec file.Record) (file.Record, error)
	List(ctx context.Context) ([]file.Record, error)
	Get(ctx context.Context, id string) (file.Record, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// app holds the wired components shared by the serve and sweep commands.
type app struct {
	records recordStore
	blobs   file.BlobStore
	types   *file.ContentTypes
	checks  []server.HealthCheck
	closers []func(context.Context) error
}

func buildApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{types: file.NewContentTypes(cfg.Storage.AllowedTypes, cfg.Storage.ViewableTypes)}

	if err := a.openRecords(ctx, cfg, log); err != nil {
		a.close(context.Background(), log)
		return nil, err
	}
	if err := a.openBlobs(ctx, cfg); err != nil {
		a.close(context.Background(), log)
		return nil, err
	}
	return a, nil
}

func (a *app) openRecords(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	switch cfg.Metadata.Backend {
	case config.MetadataPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

		repo := file.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		a.records = repo
	default:
		client, err := storage.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Disconnect)

		repo := file.NewMongoRepository(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.records = repo
	}
	a.checks = append(a.checks, server.HealthCheck{Name: cfg.Metadata.Backend, Ping: a.records.Ping})

	if !cfg.Redis.Enabled() {
		return nil
	}
	client, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	cache := file.NewRedisCache(client)
	a.records = cachedStore{
		CachedRepository: file.NewCachedRepository(a.records, cache, cfg.Metadata.CacheTTL, log),
		ping:             a.records.Ping,
	}
	a.checks = append(a.checks, server.HealthCheck{Name: "redis", Ping: cache.Ping})
	log.Info("record cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Metadata.CacheTTL))
	return nil
}

func (a *app) openBlobs(ctx context.Context, cfg config.Config) error {
	switch cfg.Storage.Backend {
	case config.StorageMinIO:
		client, err := storage.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		a.blobs = file.NewMinIOStore(client, cfg.MinIO.Bucket)
	default:
		store, err := file.NewDiskStore(afero.NewOsFs(), cfg.Storage.Root)
		if err != nil {
			return err
		}
		a.blobs = store
	}
	a.checks = append(a.checks, server.HealthCheck{Name: cfg.Storage.Backend, Ping: a.blobs.Ping})
	return nil
}

func (a *app) fileService(cfg config.Config, log *zap.Logger) *file.Service {
	return file.NewService(a.records, a.blobs, a.types, file.Options{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         log,
	})
}

func (a *app) sweeper(log *zap.Logger) *file.Sweeper {
	return file.NewSweeper(a.records, a.blobs, log)
}

// close releases connections in reverse order of opening.
func (a *app) close(ctx context.Context, log *zap.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn("close dependency", zap.Error(err))
		}
	}
	a.closers = nil
}

// cachedStore keeps the backing store's Ping next to the cached reads.
type cachedStore struct {
	*file.CachedRepository
	ping func(ctx context.Context) error
}

func (s cachedStore) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func describe(cfg config.Config) string {
	return fmt.Sprintf("metadata=%s storage=%s", cfg.Metadata.Backend, cfg.Storage.Backend)
}
