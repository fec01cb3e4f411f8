package recommend

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	apperrors "github.com/animuse/animuse/pkg/errors"
)

// Registry owns one Coordinator per user, created on first use.
type Registry struct {
	cfg      Config
	profiles ProfileSource
	fetcher  Fetcher
	cache    *CategoryCache
	notifier Notifier
	logger   *slog.Logger
	opts     []Option

	mu           sync.Mutex
	coordinators map[string]*Coordinator
	closed       bool
}

var _ Service = (*Registry)(nil)

// NewRegistry wires the shared dependencies handed to every coordinator.
func NewRegistry(cfg Config, profiles ProfileSource, fetcher Fetcher, cache *CategoryCache, notifier Notifier, logger *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		cfg:          cfg,
		profiles:     profiles,
		fetcher:      fetcher,
		cache:        cache,
		notifier:     notifier,
		logger:       logger.With("component", "recommend.registry"),
		opts:         opts,
		coordinators: make(map[string]*Coordinator),
	}
}

// Coordinator returns the started coordinator for userID.
func (r *Registry) Coordinator(ctx context.Context, userID string) (*Coordinator, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, "user id is required", nil)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, apperrors.Wrap(apperrors.CodeFetchFailed, "recommendation service is shutting down", nil)
	}
	coord, ok := r.coordinators[userID]
	if !ok {
		coord = NewCoordinator(userID, r.cfg, r.profiles, r.fetcher, r.cache, r.notifier, r.logger, r.opts...)
		r.coordinators[userID] = coord
		r.logger.Debug("coordinator created", "user_id", userID)
	}
	r.mu.Unlock()

	// Start is idempotent and blocks concurrent callers until the cache is loaded.
	coord.Start(ctx)
	return coord, nil
}

// Trigger schedules a debounced refresh check for the user.
func (r *Registry) Trigger(ctx context.Context, userID, reason string, view View) error {
	coord, err := r.Coordinator(ctx, userID)
	if err != nil {
		return err
	}
	coord.Trigger(reason, view)
	return nil
}

// Categories returns the user's current categories.
func (r *Registry) Categories(ctx context.Context, userID string) ([]Category, error) {
	coord, err := r.Coordinator(ctx, userID)
	if err != nil {
		return nil, err
	}
	return coord.Categories(), nil
}

// Refresh runs a manual refresh for the user.
func (r *Registry) Refresh(ctx context.Context, userID string) (RefreshResult, error) {
	coord, err := r.Coordinator(ctx, userID)
	if err != nil {
		return RefreshResult{}, err
	}
	return coord.Refresh(ctx)
}

// Release disposes the user's coordinator, e.g. on sign-out.
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	coord, ok := r.coordinators[userID]
	delete(r.coordinators, userID)
	r.mu.Unlock()
	if ok {
		coord.Dispose()
	}
}

// Close disposes every coordinator and rejects further use.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	coords := r.coordinators
	r.coordinators = make(map[string]*Coordinator)
	r.mu.Unlock()

	for _, coord := range coords {
		coord.Dispose()
	}
	r.logger.Info("recommendation coordinators disposed", "count", len(coords))
}
