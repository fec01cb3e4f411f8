package recommend

import (
	"context"

	"github.com/animuse/animuse/internal/domain/profile"
)

// Fetcher calls the upstream recommendation function.
type Fetcher interface {
	FetchRecommendations(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// ProfileSource reads the inputs of a fetch. profile.Service satisfies it.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (profile.Snapshot, error)
	RecentActivity(ctx context.Context, userID string, limit int) ([]profile.Activity, error)
}

// Notifier delivers toasts to a user.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification)
}

// Service is the per-user refresh API consumed by the transport layer.
type Service interface {
	Trigger(ctx context.Context, userID, reason string, view View) error
	Categories(ctx context.Context, userID string) ([]Category, error)
	Refresh(ctx context.Context, userID string) (RefreshResult, error)
	Release(userID string)
}
