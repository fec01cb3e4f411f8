package recommend

import "time"

const (
	// PersonalizedCategoryID identifies the AI-backed "for you" list.
	PersonalizedCategoryID = "personalized"
	// PersonalizedFunction names the upstream function recorded in FetchSource.
	PersonalizedFunction = "ai.getPersonalizedRecommendations"
)

// Config holds runtime knobs for the refresh coordinator.
type Config struct {
	DebounceDelay time.Duration
	Policy        Policy
	ResultCount   int
	ActivityLimit int
	CategoryTitle string
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 500 * time.Millisecond,
		Policy:        DefaultPolicy(),
		ResultCount:   10,
		ActivityLimit: 10,
		CategoryTitle: "Personalized For You",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = def.DebounceDelay
	}
	if c.Policy == (Policy{}) {
		c.Policy = def.Policy
	}
	if c.Policy.RefreshInterval <= 0 {
		c.Policy.RefreshInterval = def.Policy.RefreshInterval
	}
	if c.Policy.RecentWindow < 0 {
		c.Policy.RecentWindow = 0
	}
	if c.ResultCount <= 0 {
		c.ResultCount = def.ResultCount
	}
	if c.ActivityLimit < 0 {
		c.ActivityLimit = 0
	}
	if c.CategoryTitle == "" {
		c.CategoryTitle = def.CategoryTitle
	}
	return c
}
