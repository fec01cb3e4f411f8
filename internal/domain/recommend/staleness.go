package recommend

import "time"

// Freshness is the verdict of the staleness policy.
type Freshness int

const (
	// FreshnessAbsent means the category has never been fetched.
	FreshnessAbsent Freshness = iota
	// FreshnessVeryRecent means data was fetched inside the recent window.
	FreshnessVeryRecent
	// FreshnessFresh means data is younger than the refresh interval.
	FreshnessFresh
	// FreshnessStale means data is at least one refresh interval old.
	FreshnessStale
)

func (f Freshness) String() string {
	switch f {
	case FreshnessAbsent:
		return "absent"
	case FreshnessVeryRecent:
		return "very_recent"
	case FreshnessFresh:
		return "fresh"
	case FreshnessStale:
		return "stale"
	default:
		return "unknown"
	}
}

// NeedsFetch reports whether the verdict calls for a refresh.
func (f Freshness) NeedsFetch() bool {
	return f == FreshnessAbsent || f == FreshnessStale
}

// Policy decides when cached recommendations must be refreshed.
type Policy struct {
	RefreshInterval time.Duration
	// RecentWindow absorbs rapid re-renders and navigations: data younger than
	// this is fresh whatever RefreshInterval says.
	RecentWindow time.Duration
}

// DefaultPolicy refreshes every 12 hours and never within 5 minutes of a fetch.
func DefaultPolicy() Policy {
	return Policy{
		RefreshInterval: 12 * time.Hour,
		RecentWindow:    5 * time.Minute,
	}
}

// Evaluate classifies lastFetched (epoch milliseconds, 0 when absent) at now.
func (p Policy) Evaluate(lastFetched int64, now time.Time) Freshness {
	if lastFetched <= 0 {
		return FreshnessAbsent
	}
	elapsed := now.Sub(time.UnixMilli(lastFetched))
	if p.RecentWindow > 0 && elapsed < p.RecentWindow {
		return FreshnessVeryRecent
	}
	if elapsed < p.RefreshInterval {
		return FreshnessFresh
	}
	return FreshnessStale
}
