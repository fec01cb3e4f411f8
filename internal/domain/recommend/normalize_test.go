package recommend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMalformedItem(t *testing.T) {
	items := Normalize([]RawItem{{"title": nil, "rating": "8"}})
	require.Len(t, items, 1)

	got := items[0]
	require.Equal(t, "Unknown Title", got.Title)
	require.Equal(t, 7.0, got.MoodMatchScore)
	require.Equal(t, []string{}, got.Genres)
	require.Equal(t, []string{}, got.EmotionalTags)
	require.Equal(t, []string{}, got.Studios)
	require.Equal(t, []string{}, got.Themes)
	require.Equal(t, defaultDescription, got.Description)
	require.Equal(t, defaultReasoning, got.Reasoning)
	require.Nil(t, got.Rating)
	require.Nil(t, got.Year)
}

func TestNormalizeMoodMatchScoreFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		raw  RawItem
		want float64
	}{
		{name: "explicit score wins", raw: RawItem{"moodMatchScore": 9.5, "similarityScore": 3.0, "rating": 2.0}, want: 9.5},
		{name: "similarity next", raw: RawItem{"similarityScore": 4.0, "rating": 8.0}, want: 4},
		{name: "rating used", raw: RawItem{"rating": 8.4}, want: 8.4},
		{name: "rating clamped high", raw: RawItem{"rating": 42.0}, want: 10},
		{name: "rating clamped low", raw: RawItem{"rating": 0.2}, want: 1},
		{name: "non numeric score ignored", raw: RawItem{"moodMatchScore": "9", "rating": 6.0}, want: 6},
		{name: "default", raw: RawItem{}, want: 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize([]RawItem{tc.raw})
			require.InDelta(t, tc.want, got[0].MoodMatchScore, 1e-9)
		})
	}
}

func TestNormalizeListFieldsAreAlwaysArrays(t *testing.T) {
	raw := []RawItem{
		{"genres": "Action", "emotionalTags": nil, "studios": 5, "themes": map[string]any{"a": 1}},
		{"genres": []any{"Drama", 3, "Mystery"}, "studios": []any{}},
		nil,
	}
	for _, item := range Normalize(raw) {
		require.NotNil(t, item.Genres)
		require.NotNil(t, item.EmotionalTags)
		require.NotNil(t, item.Studios)
		require.NotNil(t, item.Themes)
	}
	require.Equal(t, []string{"Drama", "Mystery"}, Normalize(raw[1:2])[0].Genres)
}

func TestNormalizePassthroughOnlyWhenPresent(t *testing.T) {
	items := Normalize([]RawItem{
		{
			"_id":                 "anime_123",
			"title":               "Mushishi",
			"year":                2005.0,
			"trailerUrl":          "https://example.com/t",
			"foundInDatabase":     true,
			"plotTropes":          []any{"episodic"},
			"characterHighlights": "not a list",
		},
		{"title": "Frieren", "year": -3.0},
	})

	first := items[0]
	require.Equal(t, "anime_123", *first.ID)
	require.Equal(t, 2005, *first.Year)
	require.Equal(t, "https://example.com/t", *first.TrailerURL)
	require.True(t, *first.FoundInDatabase)
	require.Equal(t, []string{"episodic"}, first.PlotTropes)
	require.Nil(t, first.CharacterHighlights)

	encoded, err := json.Marshal(items[1])
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(encoded, &fields))
	for _, key := range []string{"_id", "year", "rating", "trailerUrl", "foundInDatabase", "plotTropes"} {
		_, present := fields[key]
		require.False(t, present, key)
	}
	require.Contains(t, fields, "moodMatchScore")
	require.Contains(t, fields, "genres")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize([]RawItem{
		{"title": "Ping Pong", "rating": 8.7, "genres": []any{"Sports"}, "year": 2014.0, "surpriseFactors": []any{"art"}},
		{"title": nil, "rating": "8"},
		{"_id": "x1", "moodMatchScore": 9.0, "similarityScore": 2.0, "foundInDatabase": false},
	})

	encoded, err := json.Marshal(first)
	require.NoError(t, err)
	var raw []RawItem
	require.NoError(t, json.Unmarshal(encoded, &raw))

	require.Equal(t, first, Normalize(raw))
}

func TestNormalizeEmptyInput(t *testing.T) {
	require.Equal(t, []Item{}, Normalize(nil))
}
