package recommend

import (
	"encoding/json"
	"math"
)

const (
	defaultTitle          = "Unknown Title"
	defaultDescription    = "No description available."
	defaultReasoning      = "AI recommendation"
	defaultMoodMatchScore = 7.0
)

// Normalize coerces loosely-typed upstream records into Items. It never fails:
// any field that does not have the expected shape is treated as absent.
func Normalize(raw []RawItem) []Item {
	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalizeItem(r))
	}
	return out
}

func normalizeItem(r RawItem) Item {
	item := Item{
		Title:          stringOr(r["title"], defaultTitle),
		Description:    stringOr(r["description"], defaultDescription),
		PosterURL:      stringOr(r["posterUrl"], ""),
		Genres:         stringList(r["genres"]),
		EmotionalTags:  stringList(r["emotionalTags"]),
		Studios:        stringList(r["studios"]),
		Themes:         stringList(r["themes"]),
		Reasoning:      stringOr(r["reasoning"], defaultReasoning),
		MoodMatchScore: moodMatchScore(r),
	}

	if id, ok := nonEmptyString(r["_id"]); ok {
		item.ID = &id
	}
	if year, ok := positiveInt(r["year"]); ok {
		item.Year = &year
	}
	if rating, ok := number(r["rating"]); ok {
		item.Rating = &rating
	}
	if trailer, ok := nonEmptyString(r["trailerUrl"]); ok {
		item.TrailerURL = &trailer
	}
	if found, ok := r["foundInDatabase"].(bool); ok {
		item.FoundInDatabase = &found
	}
	item.CharacterHighlights = optionalList(r["characterHighlights"])
	item.PlotTropes = optionalList(r["plotTropes"])
	item.ArtStyleTags = optionalList(r["artStyleTags"])
	item.SurpriseFactors = optionalList(r["surpriseFactors"])
	return item
}

// moodMatchScore prefers the explicit score, then the similarity score, then
// the rating clamped into [1,10], then a neutral default.
func moodMatchScore(r RawItem) float64 {
	if v, ok := number(r["moodMatchScore"]); ok {
		return v
	}
	if v, ok := number(r["similarityScore"]); ok {
		return v
	}
	if v, ok := number(r["rating"]); ok {
		return math.Min(10, math.Max(1, v))
	}
	return defaultMoodMatchScore
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func positiveInt(v any) (int, bool) {
	f, ok := number(v)
	if !ok || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func stringOr(v any, fallback string) string {
	if s, ok := nonEmptyString(v); ok {
		return s
	}
	return fallback
}

// stringList keeps the string elements of an array value and returns an
// empty, non-nil slice for everything else.
func stringList(v any) []string {
	out := []string{}
	switch arr := v.(type) {
	case []any:
		for _, el := range arr {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, arr...)
	}
	return out
}

func optionalList(v any) []string {
	switch v.(type) {
	case []any, []string:
		list := stringList(v)
		if len(list) == 0 {
			return nil
		}
		return list
	default:
		return nil
	}
}
