package recommend

import (
	"time"

	"github.com/animuse/animuse/internal/domain/profile"
)

// RawItem is an untyped recommendation as decoded from the upstream payload.
// Only Normalize turns it into an Item.
type RawItem map[string]any

// Item is a normalized recommendation. List fields are never nil and
// MoodMatchScore is always set.
type Item struct {
	ID                  *string  `json:"_id,omitempty"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	PosterURL           string   `json:"posterUrl"`
	Genres              []string `json:"genres"`
	Year                *int     `json:"year,omitempty"`
	Rating              *float64 `json:"rating,omitempty"`
	EmotionalTags       []string `json:"emotionalTags"`
	TrailerURL          *string  `json:"trailerUrl,omitempty"`
	Studios             []string `json:"studios"`
	Themes              []string `json:"themes"`
	Reasoning           string   `json:"reasoning"`
	MoodMatchScore      float64  `json:"moodMatchScore"`
	CharacterHighlights []string `json:"characterHighlights,omitempty"`
	PlotTropes          []string `json:"plotTropes,omitempty"`
	ArtStyleTags        []string `json:"artStyleTags,omitempty"`
	SurpriseFactors     []string `json:"surpriseFactors,omitempty"`
	FoundInDatabase     *bool    `json:"foundInDatabase,omitempty"`
}

// FetchSource records which upstream function populated a category and with
// which arguments.
type FetchSource struct {
	Function string `json:"function"`
	Count    int    `json:"count"`
}

// Category is one recommendation list shown on the dashboard.
type Category struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Recommendations []Item      `json:"recommendations"`
	IsLoading       bool        `json:"isLoading"`
	Error           string      `json:"error,omitempty"`
	LastFetched     int64       `json:"lastFetched,omitempty"`
	Source          FetchSource `json:"source"`
}

// View names the screen the client currently shows.
type View string

// ViewDashboard is the only view that triggers background refreshes.
const ViewDashboard View = "dashboard"

// FetchRequest is sent to the upstream recommendation function.
type FetchRequest struct {
	Profile   profile.Snapshot   `json:"profile"`
	Activity  []profile.Activity `json:"activity,omitempty"`
	Count     int                `json:"count"`
	MessageID string             `json:"messageId"`
}

// FetchResult is the upstream response. Error may carry a non-fatal
// configuration warning; see IsConfigurationWarning.
type FetchResult struct {
	Recommendations []RawItem `json:"recommendations"`
	Error           string    `json:"error,omitempty"`
	Debug           any       `json:"debug,omitempty"`
}

// RefreshResult reports the outcome of a manual refresh.
type RefreshResult struct {
	Count    int      `json:"count"`
	Category Category `json:"category"`
	Warning  string   `json:"warning,omitempty"`
}

// Level classifies a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a transient message for the user, rendered as a toast.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
