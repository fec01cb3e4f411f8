package profile

import "time"

// Snapshot is the read-only projection of a user's stored preferences that
// recommendation requests are built from.
type Snapshot struct {
	UserID              string    `json:"userId"`
	Name                string    `json:"name,omitempty"`
	Moods               []string  `json:"moods"`
	Genres              []string  `json:"genres"`
	FavoriteAnimes      []string  `json:"favoriteAnimes"`
	DislikedGenres      []string  `json:"dislikedGenres"`
	DislikedTags        []string  `json:"dislikedTags"`
	CharacterArchetypes []string  `json:"characterArchetypes"`
	TropesLiked         []string  `json:"tropesLiked"`
	TropesDisliked      []string  `json:"tropesDisliked"`
	ArtStyles           []string  `json:"artStyles"`
	ExperienceLevel     string    `json:"experienceLevel,omitempty"`
	WatchPacing         string    `json:"watchPacing,omitempty"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Activity is a single watchlist change used as a recommendation signal.
type Activity struct {
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	UserRating *float64  `json:"userRating,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Watchlist statuses accepted by RecordActivity.
const (
	StatusWatching    = "Watching"
	StatusCompleted   = "Completed"
	StatusPlanToWatch = "Plan to Watch"
	StatusDropped     = "Dropped"
)

// UpdateRequest is the preferences form payload.
type UpdateRequest struct {
	Name                *string  `json:"name"`
	Moods               []string `json:"moods"`
	Genres              []string `json:"genres"`
	FavoriteAnimes      []string `json:"favoriteAnimes"`
	DislikedGenres      []string `json:"dislikedGenres"`
	DislikedTags        []string `json:"dislikedTags"`
	CharacterArchetypes []string `json:"characterArchetypes"`
	TropesLiked         []string `json:"tropesLiked"`
	TropesDisliked      []string `json:"tropesDisliked"`
	ArtStyles           []string `json:"artStyles"`
	ExperienceLevel     *string  `json:"experienceLevel"`
	WatchPacing         *string  `json:"watchPacing"`
	OnboardingCompleted *bool    `json:"onboardingCompleted"`
}

// ActivityRequest records a watchlist change.
type ActivityRequest struct {
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	UserRating *float64 `json:"userRating"`
}
