package recommender

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/animuse/animuse/internal/domain/profile"
	"github.com/animuse/animuse/internal/domain/recommend"
)

const defaultSystemPrompt = "You are AniMuse, an anime recommendation assistant. Suggest titles that match the viewer's moods, tastes and recent watching."

// responseContract is appended to every system prompt so the reply can be
// decoded into raw recommendation records.
const responseContract = ` Respond ONLY with a JSON object of the shape {"recommendations":[{"title":string,"description":string,"genres":string[],"year":number,"rating":number,"emotionalTags":string[],"studios":string[],"themes":string[],"reasoning":string,"moodMatchScore":number,"characterHighlights":string[],"plotTropes":string[],"artStyleTags":string[],"surpriseFactors":string[]}]}. Never recommend titles the viewer already completed or dropped. Never include prose outside the JSON.`

type promptProfile struct {
	Name                string   `json:"name,omitempty"`
	Moods               []string `json:"moods,omitempty"`
	Genres              []string `json:"genres,omitempty"`
	FavoriteAnimes      []string `json:"favoriteAnimes,omitempty"`
	DislikedGenres      []string `json:"dislikedGenres,omitempty"`
	DislikedTags        []string `json:"dislikedTags,omitempty"`
	CharacterArchetypes []string `json:"characterArchetypes,omitempty"`
	TropesLiked         []string `json:"tropesLiked,omitempty"`
	TropesDisliked      []string `json:"tropesDisliked,omitempty"`
	ArtStyles           []string `json:"artStyles,omitempty"`
	ExperienceLevel     string   `json:"experienceLevel,omitempty"`
	WatchPacing         string   `json:"watchPacing,omitempty"`
}

type promptActivity struct {
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	UserRating *float64 `json:"userRating,omitempty"`
}

func systemPrompt(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultSystemPrompt
	}
	return base + responseContract
}

// userPrompt renders the request. Older activity entries are dropped until
// the prompt fits budget; the profile itself is never trimmed.
func userPrompt(req recommend.FetchRequest, counter TokenCounter, budget int) (string, int) {
	activity := toPromptActivity(req.Activity)
	for {
		text := renderUserPrompt(req.Count, req.Profile, activity)
		tokens := counter.Count(text)
		if budget <= 0 || tokens <= budget || len(activity) == 0 {
			return text, tokens
		}
		activity = activity[:len(activity)-1]
	}
}

func renderUserPrompt(count int, snap profile.Snapshot, activity []promptActivity) string {
	prefs, err := json.Marshal(toPromptProfile(snap))
	if err != nil {
		prefs = []byte("{}")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %d anime for this viewer.\nPreferences: %s\n", count, prefs)
	if len(activity) > 0 {
		recent, err := json.Marshal(activity)
		if err == nil {
			fmt.Fprintf(&b, "Recent watchlist activity (newest first): %s\n", recent)
		}
	}
	return b.String()
}

func toPromptProfile(s profile.Snapshot) promptProfile {
	return promptProfile{
		Name:                s.Name,
		Moods:               s.Moods,
		Genres:              s.Genres,
		FavoriteAnimes:      s.FavoriteAnimes,
		DislikedGenres:      s.DislikedGenres,
		DislikedTags:        s.DislikedTags,
		CharacterArchetypes: s.CharacterArchetypes,
		TropesLiked:         s.TropesLiked,
		TropesDisliked:      s.TropesDisliked,
		ArtStyles:           s.ArtStyles,
		ExperienceLevel:     s.ExperienceLevel,
		WatchPacing:         s.WatchPacing,
	}
}

func toPromptActivity(in []profile.Activity) []promptActivity {
	out := make([]promptActivity, 0, len(in))
	for _, a := range in {
		out = append(out, promptActivity{Title: a.Title, Status: a.Status, UserRating: a.UserRating})
	}
	return out
}
