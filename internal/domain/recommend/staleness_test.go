package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicyEvaluate(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()
	ago := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }

	tests := []struct {
		name        string
		lastFetched int64
		want        Freshness
	}{
		{name: "absent", lastFetched: 0, want: FreshnessAbsent},
		{name: "thirteen hours", lastFetched: ago(13 * time.Hour), want: FreshnessStale},
		{name: "exactly twelve hours", lastFetched: ago(12 * time.Hour), want: FreshnessStale},
		{name: "one hour", lastFetched: ago(time.Hour), want: FreshnessFresh},
		{name: "two minutes", lastFetched: ago(2 * time.Minute), want: FreshnessVeryRecent},
		{name: "clock skew future", lastFetched: now.Add(time.Minute).UnixMilli(), want: FreshnessVeryRecent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, policy.Evaluate(tc.lastFetched, now))
		})
	}
}

func TestPolicyRecentWindowOverridesShortInterval(t *testing.T) {
	now := time.Now()
	policy := Policy{RefreshInterval: time.Minute, RecentWindow: 5 * time.Minute}

	got := policy.Evaluate(now.Add(-3*time.Minute).UnixMilli(), now)
	require.Equal(t, FreshnessVeryRecent, got)
	require.False(t, got.NeedsFetch())
}

func TestFreshnessNeedsFetch(t *testing.T) {
	require.True(t, FreshnessAbsent.NeedsFetch())
	require.True(t, FreshnessStale.NeedsFetch())
	require.False(t, FreshnessFresh.NeedsFetch())
	require.False(t, FreshnessVeryRecent.NeedsFetch())
	require.Equal(t, "very_recent", FreshnessVeryRecent.String())
}
