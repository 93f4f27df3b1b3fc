package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/rentdesk"
	"github.com/aretw0/rentdesk/internal/config"
	"github.com/aretw0/rentdesk/pkg/adapters/memory"
	rdredis "github.com/aretw0/rentdesk/pkg/adapters/redis"
	"github.com/aretw0/rentdesk/pkg/adapters/rest"
	"github.com/aretw0/rentdesk/pkg/ports"
	"github.com/redis/go-redis/v9"
)

// app is the wired engine plus whatever must be released on exit.
type app struct {
	engine  *rentdesk.Engine
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// newApp builds the backend, the option cache and the engine described by cfg.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...rentdesk.Option) (*app, error) {
	a := &app{}

	var backend ports.Backend
	switch cfg.Backend {
	case config.BackendREST:
		client, err := rest.New(cfg.APIBaseURL,
			rest.WithToken(cfg.APIToken),
			rest.WithTimeout(cfg.APITimeout),
			rest.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		backend = memory.NewDefault()
	}

	loc, err := cfg.Zone()
	if err != nil {
		return nil, err
	}
	opts = append([]rentdesk.Option{
		rentdesk.WithLogger(logger),
		rentdesk.WithLocation(loc),
		rentdesk.WithRefresh(func(_ context.Context, resource, id string) {
			logger.Info("record saved", "resource", resource, "id", id)
		}),
	}, opts...)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)
		cache := rdredis.NewFromClient(client, backend,
			rdredis.WithTTL(cfg.OptionCacheTTL),
			rdredis.WithLogger(logger),
		)
		opts = append(opts, rentdesk.WithCatalog(cache))
		logger.Info("option lists cached in redis", "addr", cfg.RedisAddr, "ttl", cfg.OptionCacheTTL)
	}

	engine, err := rentdesk.New(backend, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}
