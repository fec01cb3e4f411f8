package profile

import "context"

// Repository abstracts profile and watchlist persistence.
type Repository interface {
	Get(ctx context.Context, userID string) (Snapshot, bool, error)
	Save(ctx context.Context, snapshot Snapshot) (Snapshot, error)
	AppendActivity(ctx context.Context, userID string, activity Activity) error
	RecentActivity(ctx context.Context, userID string, limit int) ([]Activity, error)
}
