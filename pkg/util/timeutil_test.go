package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEpochMillisRoundTrip(t *testing.T) {
	ts := time.Date(2024, 7, 1, 12, 30, 0, 0, time.UTC)
	require.Equal(t, ts, FromEpochMillis(EpochMillis(ts)))
}

func TestEpochMillisZero(t *testing.T) {
	require.Zero(t, EpochMillis(time.Time{}))
	require.True(t, FromEpochMillis(0).IsZero())
	require.True(t, FromEpochMillis(-5).IsZero())
}
