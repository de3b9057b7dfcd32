package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/config"
	"github.com/example/travelbook/internal/crypto"
	"github.com/example/travelbook/internal/db"
	"github.com/example/travelbook/internal/kv"
	"github.com/example/travelbook/internal/migrate"
	"github.com/example/travelbook/internal/ratelimit"
	"github.com/example/travelbook/internal/roster"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "travelbook:"

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func newAPIClient(cfg config.Config, log *slog.Logger) (*apiclient.Client, error) {
	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}
	return apiclient.New(cfg.APIBaseURL,
		apiclient.WithLimiter(ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)),
		apiclient.WithDefaultTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(log),
	)
}

func retryConfig(cfg config.Config, log *slog.Logger) apiclient.RetryConfig {
	return apiclient.RetryConfig{
		MaxRetries: cfg.RetryMax,
		BaseDelay:  cfg.RetryBaseDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn("retrying api call", "attempt", attempt, "delay_ms", delay.Milliseconds(), "err", err)
		},
	}
}

// openProfiles builds the profile store for the configured backend. The
// returned func releases its connections.
func openProfiles(ctx context.Context, cfg config.Config, log *slog.Logger) (*roster.ProfileStore, func(), error) {
	var (
		store   kv.Store
		cleanup = func() {}
	)
	switch cfg.ProfileStore {
	case config.StoreRedis:
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		store = kv.NewRedis(rc, redisKeyPrefix)
		cleanup = func() { _ = rc.Close() }
	case config.StorePostgres:
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := d.Ping(ctx); err != nil {
			d.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, nil, err
		}
		store = kv.NewPostgres(d)
		cleanup = d.Close
	default:
		log.Warn("profiles are kept in memory and lost on exit", "profile_store", cfg.ProfileStore)
		store = kv.NewMemory()
	}

	var opts []roster.ProfileOption
	if len(cfg.ProfileEncKey) > 0 {
		sealer, err := crypto.New(cfg.ProfileEncKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("profile encryption: %w", err)
		}
		opts = append(opts, roster.WithSealer(sealer))
	}
	return roster.NewProfileStore(store, opts...), cleanup, nil
}
