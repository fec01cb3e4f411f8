package recommend

import (
	"context"
	"errors"
	"log/slog"

	"github.com/animuse/animuse/pkg/kv"
)

const cacheKeyPrefix = "animuse:recommendationCategories:"

// CategoryCache persists a user's category list as a single JSON array so the
// dashboard can render last-known-good data before any network activity.
type CategoryCache struct {
	store  kv.Store
	logger *slog.Logger
}

// NewCategoryCache wraps a key-value store.
func NewCategoryCache(store kv.Store, logger *slog.Logger) *CategoryCache {
	return &CategoryCache{store: store, logger: logger.With("component", "recommend.cache")}
}

// persistedCategory mirrors Category on disk. Items stay untyped until
// Normalize runs so scores missing from older entries fall back like fresh ones.
type persistedCategory struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Recommendations []RawItem   `json:"recommendations"`
	Error           string      `json:"error,omitempty"`
	LastFetched     int64       `json:"lastFetched,omitempty"`
	Source          FetchSource `json:"source"`
}

// Load restores the persisted categories. Unreadable data is discarded and an
// empty list returned; Load never fails.
func (c *CategoryCache) Load(ctx context.Context, userID string) []Category {
	var stored []persistedCategory
	found, err := kv.GetJSON(ctx, c.store, cacheKey(userID), &stored)
	if err != nil {
		var decodeErr *kv.DecodeError
		if errors.As(err, &decodeErr) {
			c.logger.Warn("discarding corrupt recommendation cache", "user_id", userID, "error", err)
			if rmErr := c.store.Remove(ctx, cacheKey(userID)); rmErr != nil {
				c.logger.Warn("failed to remove corrupt recommendation cache", "user_id", userID, "error", rmErr)
			}
		} else {
			c.logger.Warn("recommendation cache unavailable, starting empty", "user_id", userID, "error", err)
		}
		return []Category{}
	}
	if !found {
		return []Category{}
	}

	out := make([]Category, 0, len(stored))
	for _, p := range stored {
		if p.ID == "" {
			continue
		}
		// the in-progress guard is not persisted, so IsLoading always restores false
		out = append(out, Category{
			ID:              p.ID,
			Title:           p.Title,
			Recommendations: Normalize(p.Recommendations),
			Error:           p.Error,
			LastFetched:     p.LastFetched,
			Source:          p.Source,
		})
	}
	c.logger.Debug("recommendation cache restored", "user_id", userID, "categories", len(out))
	return out
}

// Save overwrites the persisted list.
func (c *CategoryCache) Save(ctx context.Context, userID string, categories []Category) error {
	return kv.SetJSON(ctx, c.store, cacheKey(userID), categories)
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}
