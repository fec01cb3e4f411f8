package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryCache_LoadMissingReturnsEmpty(t *testing.T) {
	cache := NewCategoryCache(newMemStore(), newTestLogger())

	got := cache.Load(context.Background(), "user-1")
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestCategoryCache_RoundTripResetsLoading(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := NewCategoryCache(store, newTestLogger())

	items := Normalize(titles(2))
	require.NoError(t, cache.Save(ctx, "user-1", []Category{{
		ID:              PersonalizedCategoryID,
		Title:           "Personalized For You",
		Recommendations: items,
		IsLoading:       true,
		LastFetched:     1700000000000,
		Source:          FetchSource{Function: PersonalizedFunction, Count: 10},
	}}))

	got := cache.Load(ctx, "user-1")
	require.Len(t, got, 1)
	require.False(t, got[0].IsLoading)
	require.Equal(t, int64(1700000000000), got[0].LastFetched)
	require.Equal(t, items, got[0].Recommendations)
	require.Equal(t, PersonalizedFunction, got[0].Source.Function)

	// users do not share a key
	require.Empty(t, cache.Load(ctx, "user-2"))
}

func TestCategoryCache_CorruptDataIsRemoved(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Set(ctx, cacheKey("user-1"), []byte("{not json")))
	cache := NewCategoryCache(store, newTestLogger())

	got := cache.Load(ctx, "user-1")
	require.Empty(t, got)
	require.False(t, store.has(cacheKey("user-1")))
}

func TestCategoryCache_RepairsOldEntries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	legacy := `[{"id":"personalized","title":"For You","recommendations":[{"title":"Mushishi"}]},{"title":"orphan"}]`
	require.NoError(t, store.Set(ctx, cacheKey("user-1"), []byte(legacy)))
	cache := NewCategoryCache(store, newTestLogger())

	got := cache.Load(ctx, "user-1")
	require.Len(t, got, 1)
	item := got[0].Recommendations[0]
	require.Equal(t, "Mushishi", item.Title)
	require.Equal(t, []string{}, item.Genres)
	require.Equal(t, []string{}, item.Studios)
	require.Equal(t, defaultReasoning, item.Reasoning)
	require.Equal(t, 7.0, item.MoodMatchScore)
}

func TestCategoryCache_StoreErrorKeepsData(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Set(ctx, cacheKey("user-1"), []byte(`[]`)))
	store.getErr = errors.New("connection refused")
	cache := NewCategoryCache(store, newTestLogger())

	require.Empty(t, cache.Load(ctx, "user-1"))
	require.True(t, store.has(cacheKey("user-1")))
}

func TestCategoryCache_RestoredScoresUseFallbackChain(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	stored := `[{"id":"personalized","title":"For You","lastFetched":1700000000000,"recommendations":[` +
		`{"title":"Mushishi","rating":8},` +
		`{"title":"Haibane Renmei","similarityScore":6.5,"rating":9},` +
		`{"title":"Ping Pong","rating":0.4},` +
		`{"title":"Mononoke","moodMatchScore":9.5,"rating":7}]}]`
	require.NoError(t, store.Set(ctx, cacheKey("user-1"), []byte(stored)))
	cache := NewCategoryCache(store, newTestLogger())

	got := cache.Load(ctx, "user-1")
	require.Len(t, got, 1)
	require.Equal(t, int64(1700000000000), got[0].LastFetched)
	scores := make([]float64, 0, len(got[0].Recommendations))
	for _, item := range got[0].Recommendations {
		scores = append(scores, item.MoodMatchScore)
	}
	require.Equal(t, []float64{8, 6.5, 1, 9.5}, scores)
	require.Equal(t, 8.0, *got[0].Recommendations[0].Rating)
}
