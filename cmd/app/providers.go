package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/animuse/animuse/internal/domain/auth"
	"github.com/animuse/animuse/internal/domain/profile"
	"github.com/animuse/animuse/internal/domain/recommend"
	"github.com/animuse/animuse/internal/infra/config"
	"github.com/animuse/animuse/internal/infra/kvstore"
	"github.com/animuse/animuse/internal/infra/llm/chatgpt"
	"github.com/animuse/animuse/internal/infra/notify"
	"github.com/animuse/animuse/internal/infra/profilerepo"
	"github.com/animuse/animuse/internal/infra/recommender"
	"github.com/animuse/animuse/pkg/kv"
)

func provideRecommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		DebounceDelay: cfg.Recommend.DebounceDelay,
		Policy: recommend.Policy{
			RefreshInterval: cfg.Recommend.RefreshInterval,
			RecentWindow:    cfg.Recommend.RecentWindow,
		},
		ResultCount:   cfg.Recommend.ResultCount,
		ActivityLimit: cfg.Recommend.ActivityLimit,
		CategoryTitle: cfg.Recommend.CategoryTitle,
	}
}

func provideFetcherConfig(cfg *config.Config) recommender.Config {
	return recommender.Config{
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		Prompt:            cfg.Recommend.Prompt,
		PromptTokenBudget: cfg.LLM.PromptTokenBudget,
		MaxTokens:         cfg.LLM.MaxTokens,
		BreakerFailures:   cfg.LLM.Breaker.Failures,
		BreakerTimeout:    cfg.LLM.Breaker.Timeout,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		ClientID: cfg.Auth.ClientID,
		TokenTTL: cfg.Auth.TokenTTL,
	}
}

// provideChatClient returns nil without an API key; the fetcher then reports
// the configuration warning instead of calling upstream.
func provideChatClient(cfg *config.Config, logger *slog.Logger) (recommender.ChatClient, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("llm api key not set, personalized recommendations are disabled")
		return nil, nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, chatgpt.WithTimeout(cfg.LLM.Timeout))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) recommender.TokenCounter {
	return recommender.NewTiktokenCounter(cfg.LLM.Model, logger)
}

func provideNotificationFeed(cfg *config.Config, logger *slog.Logger) *notify.Feed {
	return notify.NewFeed(cfg.Notifications.Capacity, logger)
}

func provideProfileRepository(cfg *config.Config, logger *slog.Logger) (profile.Repository, func()) {
	fallback := profilerepo.NewMemoryRepository()
	noop := func() {}
	dsn := strings.TrimSpace(cfg.Profile.Postgres.DSN)
	if dsn == "" {
		logger.Info("profile postgres dsn not set, using memory repository")
		return fallback, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noop
	}
	if cfg.Profile.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Profile.Postgres.MaxConns
	}
	if cfg.Profile.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Profile.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop
	}
	logger.Info("profile postgres repository enabled")
	return profilerepo.NewPostgresRepository(pool), pool.Close
}

// provideCategoryStore opens the configured backend. Unlike profiles there is
// no silent fallback: a misconfigured store fails startup.
func provideCategoryStore(cfg *config.Config, logger *slog.Logger) (kv.Store, func(), error) {
	noop := func() {}
	switch cfg.Storage.Driver {
	case config.StorageMemory, "":
		return kvstore.NewMemoryStore(), noop, nil
	case config.StorageFile:
		store, err := kvstore.NewFileStore(cfg.Storage.File.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("file category store enabled", "dir", cfg.Storage.File.Dir)
		return store, noop, nil
	case config.StorageBadger:
		store, err := kvstore.OpenBadger(cfg.Storage.Badger.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("badger category store enabled", "dir", cfg.Storage.Badger.Dir)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close badger store", "error", err)
			}
		}, nil
	case config.StorageValkey:
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid valkey configuration: %w", err)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			return nil, nil, fmt.Errorf("create valkey client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("valkey ping: %w", err)
		}
		logger.Info("valkey category store enabled", "addr", cfg.Storage.Valkey.Addr)
		return kvstore.NewValkeyStore(client, cfg.Storage.Valkey.Prefix, cfg.Storage.Valkey.TTL), client.Close, nil
	case config.StorageR2:
		r2 := cfg.Storage.R2
		store, err := kvstore.NewR2Store(kvstore.R2Options{
			Endpoint:  r2.Endpoint,
			AccessKey: r2.AccessKey,
			SecretKey: r2.SecretKey,
			Bucket:    r2.Bucket,
			Region:    r2.Region,
			Prefix:    r2.Prefix,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("r2 category store enabled", "bucket", r2.Bucket)
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Storage.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Storage.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Storage.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideRegistry(cfg recommend.Config, profiles profile.Service, fetcher *recommender.Fetcher, cache *recommend.CategoryCache, feed *notify.Feed, logger *slog.Logger) *recommend.Registry {
	return recommend.NewRegistry(cfg, profiles, fetcher, cache, feed, logger)
}
