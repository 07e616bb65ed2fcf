package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/gomarketplace/cartstore/internal/cart"
	"github.com/gomarketplace/cartstore/pkg/config"
	"github.com/gomarketplace/cartstore/pkg/db"
	"github.com/gomarketplace/cartstore/pkg/logger"
	"github.com/gomarketplace/cartstore/pkg/migrate"
	"github.com/gomarketplace/cartstore/pkg/redis"
	"github.com/gomarketplace/cartstore/pkg/storage/file"
	"github.com/gomarketplace/cartstore/pkg/storage/memory"
	"github.com/gomarketplace/cartstore/pkg/storage/redisstore"
	"github.com/gomarketplace/cartstore/pkg/storage/sqlstore"
)

// backend is a cart storage slot that can also answer readiness probes.
type backend interface {
	cart.Storage
	Ping(ctx context.Context) error
}

type storageHandle struct {
	backend backend
	closers []func() error
}

func (h *storageHandle) Close() error {
	var err error
	for i := len(h.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, h.closers[i]())
	}
	return err
}

// openStorage builds the configured storage backend, connecting and migrating
// its dependencies as needed.
func openStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*storageHandle, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return &storageHandle{backend: memory.New()}, nil

	case config.StorageDriverFile:
		store, err := file.New(cfg.Storage.FileDir)
		if err != nil {
			return nil, err
		}
		return &storageHandle{backend: store}, nil

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		store, err := redisstore.New(client)
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &storageHandle{backend: store, closers: []func() error{client.Close}}, nil

	case config.StorageDriverSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(fmt.Errorf("auto migrate: %w", err), client.Close())
		}
		store, err := sqlstore.New(client)
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &storageHandle{backend: store, closers: []func() error{client.Close}}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}
