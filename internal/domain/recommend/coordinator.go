package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/animuse/animuse/internal/domain/profile"
	apperrors "github.com/animuse/animuse/pkg/errors"
	"github.com/animuse/animuse/pkg/metrics"
	"github.com/animuse/animuse/pkg/singleflight"
	"github.com/animuse/animuse/pkg/util"
)

// ConfigurationWarning is the upstream error returned when the AI provider has
// no API key. It is expected in development and never shown as a failure.
const ConfigurationWarning = "OpenAI API key not configured."

const (
	triggerAutomatic = "automatic"
	triggerManual    = "manual"
)

// IsConfigurationWarning reports whether an upstream error string is the
// non-fatal configuration warning.
func IsConfigurationWarning(msg string) bool {
	return strings.TrimSpace(msg) == ConfigurationWarning
}

// State is the observable phase of a coordinator.
type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateFetching   State = "fetching"
)

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source used for staleness and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMessageIDs overrides how upstream message ids are generated.
func WithMessageIDs(next func() string) Option {
	return func(c *Coordinator) {
		if next != nil {
			c.messageID = next
		}
	}
}

// Coordinator owns the personalized recommendation lifecycle of one user:
// cached state, debounced staleness checks and the single in-flight fetch.
type Coordinator struct {
	userID   string
	cfg      Config
	profiles ProfileSource
	fetcher  Fetcher
	cache    *CategoryCache
	notifier Notifier
	logger   *slog.Logger

	now       func() time.Time
	messageID func() string

	debouncer *singleflight.Debouncer
	guard     *singleflight.Guard

	baseCtx   context.Context
	cancel    context.CancelFunc
	startOnce sync.Once

	mu         sync.Mutex
	categories []Category
	view       View
	started    bool
	disposed   bool
}

// NewCoordinator builds an idle coordinator. Call Start before use.
func NewCoordinator(userID string, cfg Config, profiles ProfileSource, fetcher Fetcher, cache *CategoryCache, notifier Notifier, logger *slog.Logger, opts ...Option) *Coordinator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		userID:     userID,
		cfg:        cfg,
		profiles:   profiles,
		fetcher:    fetcher,
		cache:      cache,
		notifier:   notifier,
		logger:     logger.With("component", "recommend.coordinator", "user_id", userID),
		now:        time.Now,
		messageID:  uuid.NewString,
		debouncer:  singleflight.NewDebouncer(cfg.DebounceDelay),
		guard:      singleflight.NewGuard(),
		baseCtx:    ctx,
		cancel:     cancel,
		categories: []Category{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start restores persisted categories. It runs once and before any fetch can
// be scheduled through this coordinator.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		restored := c.cache.Load(ctx, c.userID)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.disposed {
			return
		}
		c.categories = restored
		c.started = true
		metrics.ActiveCoordinators.Inc()
		c.logger.Debug("coordinator started", "categories", len(restored))
	})
}

// Dispose cancels any pending check and the in-flight fetch. Later triggers
// are ignored.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	started := c.started
	c.mu.Unlock()

	c.debouncer.Stop()
	c.cancel()
	if started {
		metrics.ActiveCoordinators.Dec()
	}
}

// Trigger schedules a debounced refresh check, replacing any check scheduled
// within the debounce window. An empty view keeps the last reported one.
func (c *Coordinator) Trigger(reason string, view View) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	if view != "" {
		c.view = view
	}
	current := c.view
	c.mu.Unlock()

	c.logger.Debug("refresh check scheduled", "reason", reason, "view", current)
	return c.debouncer.Schedule(func() { c.check(reason) })
}

// Refresh fetches immediately, bypassing view, onboarding and staleness
// checks. It is rejected while another fetch runs.
func (c *Coordinator) Refresh(ctx context.Context) (RefreshResult, error) {
	if c.isDisposed() {
		return RefreshResult{}, apperrors.Wrap(apperrors.CodeFetchFailed, "coordinator disposed", nil)
	}
	if !c.guard.TryAcquire() {
		metrics.RecommendationFetches.WithLabelValues(metrics.OutcomeRejected, triggerManual).Inc()
		c.notify(ctx, LevelInfo, "Recommendations are already being refreshed. Please wait.")
		return RefreshResult{Category: c.personalized()}, apperrors.Wrap(apperrors.CodeFetchInProgress, "a recommendation refresh is already in progress", nil)
	}
	defer c.guard.Release()

	snap, err := c.profiles.Get(ctx, c.userID)
	if err != nil {
		c.notify(ctx, LevelError, "Could not load your profile. Please try again.")
		return RefreshResult{Category: c.personalized()}, err
	}
	return c.fetch(c.baseCtx, snap, triggerManual)
}

// Categories returns a copy of the current category list.
func (c *Coordinator) Categories() []Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneCategories(c.categories)
}

// State reports whether the coordinator is fetching, waiting on the debounce
// window, or idle.
func (c *Coordinator) State() State {
	switch {
	case c.guard.Busy():
		return StateFetching
	case c.debouncer.Pending():
		return StateDebouncing
	default:
		return StateIdle
	}
}

func (c *Coordinator) check(reason string) {
	ctx := c.baseCtx
	c.mu.Lock()
	view := c.view
	disposed := c.disposed
	c.mu.Unlock()
	if disposed {
		return
	}

	if view != ViewDashboard {
		c.skip(reason, "not_dashboard")
		return
	}
	snap, err := c.profiles.Get(ctx, c.userID)
	if err != nil {
		c.logger.Warn("profile unavailable for refresh check", "reason", reason, "error", err)
		c.skip(reason, "profile_unavailable")
		return
	}
	if !snap.OnboardingCompleted {
		c.skip(reason, "onboarding_incomplete")
		return
	}
	freshness := c.cfg.Policy.Evaluate(c.personalized().LastFetched, c.now())
	if !freshness.NeedsFetch() {
		c.skip(reason, freshness.String())
		return
	}
	if !c.guard.TryAcquire() {
		c.skip(reason, "in_progress")
		return
	}
	defer c.guard.Release()

	c.logger.Info("refreshing recommendations", "reason", reason, "freshness", freshness.String())
	// failures are recorded on the category and surfaced as notifications
	_, _ = c.fetch(ctx, snap, triggerAutomatic)
}

func (c *Coordinator) skip(reason, why string) {
	metrics.RecommendationChecksSkipped.WithLabelValues(why).Inc()
	c.logger.Debug("refresh check skipped", "reason", reason, "skip", why)
}

// fetch runs one upstream call. The caller must hold the guard.
func (c *Coordinator) fetch(ctx context.Context, snap profile.Snapshot, trigger string) (RefreshResult, error) {
	c.update(func(cat *Category) {
		cat.IsLoading = true
		cat.Error = ""
	})

	activity, err := c.profiles.RecentActivity(ctx, c.userID, c.cfg.ActivityLimit)
	if err != nil {
		c.logger.Warn("watchlist activity unavailable, fetching without it", "error", err)
		activity = nil
	}
	req := FetchRequest{
		Profile:   snap,
		Activity:  activity,
		Count:     c.cfg.ResultCount,
		MessageID: c.messageID(),
	}

	started := time.Now()
	result, err := c.callFetcher(ctx, req)
	metrics.RecommendationFetchDuration.Observe(time.Since(started).Seconds())
	if err == nil && result.Error != "" && !IsConfigurationWarning(result.Error) {
		err = errors.New(result.Error)
	}
	fetchedAt := util.EpochMillis(c.now())
	if err != nil {
		if c.baseCtx.Err() != nil {
			// disposed mid-fetch; nothing to record or notify
			c.logger.Debug("recommendation fetch abandoned", "trigger", trigger, "message_id", req.MessageID)
			return RefreshResult{}, apperrors.Wrap(apperrors.CodeFetchFailed, "coordinator disposed", err)
		}
		msg := err.Error()
		// a failure also counts as a fetch for staleness
		cat := c.update(func(cat *Category) {
			cat.IsLoading = false
			cat.Error = msg
			cat.LastFetched = fetchedAt
		})
		metrics.RecommendationFetches.WithLabelValues(metrics.OutcomeFailure, trigger).Inc()
		c.logger.Error("recommendation fetch failed", "trigger", trigger, "message_id", req.MessageID, "error", err)
		c.notify(ctx, LevelError, "Failed to load recommendations: "+msg)
		return RefreshResult{Category: cat}, apperrors.Wrap(apperrors.CodeFetchFailed, "recommendation fetch failed", err)
	}

	items := Normalize(result.Recommendations)
	warning := ""
	if IsConfigurationWarning(result.Error) {
		warning = result.Error
	}
	cat := c.update(func(cat *Category) {
		// an unconfigured provider returns nothing; keep what we had
		if warning == "" || len(items) > 0 {
			cat.Recommendations = items
		}
		cat.IsLoading = false
		cat.LastFetched = fetchedAt
		cat.Error = warning
		cat.Source = FetchSource{Function: PersonalizedFunction, Count: req.Count}
	})

	switch {
	case warning != "":
		metrics.RecommendationFetches.WithLabelValues(metrics.OutcomeConfigWarning, trigger).Inc()
		c.logger.Warn("recommendation provider not configured", "trigger", trigger, "message_id", req.MessageID)
	case len(items) == 0:
		metrics.RecommendationFetches.WithLabelValues(metrics.OutcomeEmpty, trigger).Inc()
		c.notify(ctx, LevelInfo, "No new recommendations right now. Try adjusting your preferences.")
	default:
		metrics.RecommendationFetches.WithLabelValues(metrics.OutcomeSuccess, trigger).Inc()
		c.logger.Info("recommendations refreshed", "trigger", trigger, "message_id", req.MessageID, "count", len(items))
		c.notify(ctx, LevelSuccess, fmt.Sprintf("Loaded %d fresh recommendations.", len(items)))
	}
	return RefreshResult{Count: len(items), Category: cat, Warning: warning}, nil
}

// callFetcher turns a fetcher panic into an ordinary failure so the guard is
// released by the caller's deferred cleanup and the error is recorded.
func (c *Coordinator) callFetcher(ctx context.Context, req FetchRequest) (result FetchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recommendation fetcher panicked: %v", r)
		}
	}()
	return c.fetcher.FetchRecommendations(ctx, req)
}

// update mutates the personalized category, creating it on first use, and
// persists the full list.
func (c *Coordinator) update(fn func(cat *Category)) Category {
	c.mu.Lock()
	idx := c.personalizedIndexLocked()
	if idx < 0 {
		c.categories = append(c.categories, Category{
			ID:              PersonalizedCategoryID,
			Title:           c.cfg.CategoryTitle,
			Recommendations: []Item{},
			Source:          FetchSource{Function: PersonalizedFunction, Count: c.cfg.ResultCount},
		})
		idx = len(c.categories) - 1
	}
	fn(&c.categories[idx])
	updated := cloneCategory(c.categories[idx])
	snapshot := cloneCategories(c.categories)
	c.mu.Unlock()

	if err := c.cache.Save(c.baseCtx, c.userID, snapshot); err != nil {
		c.logger.Warn("failed to persist recommendation categories", "error", err)
	}
	return updated
}

func (c *Coordinator) personalized() Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.personalizedIndexLocked(); idx >= 0 {
		return cloneCategory(c.categories[idx])
	}
	return Category{ID: PersonalizedCategoryID, Title: c.cfg.CategoryTitle, Recommendations: []Item{}}
}

func (c *Coordinator) personalizedIndexLocked() int {
	for i := range c.categories {
		if c.categories[i].ID == PersonalizedCategoryID {
			return i
		}
	}
	return -1
}

func (c *Coordinator) notify(ctx context.Context, level Level, msg string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(ctx, c.userID, Notification{
		Level:     level,
		Message:   msg,
		CreatedAt: c.now().UTC(),
	})
}

func (c *Coordinator) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func cloneCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, cat := range in {
		out[i] = cloneCategory(cat)
	}
	return out
}

func cloneCategory(cat Category) Category {
	items := make([]Item, len(cat.Recommendations))
	copy(items, cat.Recommendations)
	cat.Recommendations = items
	return cat
}
