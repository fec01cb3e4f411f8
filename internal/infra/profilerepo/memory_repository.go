package profilerepo

import (
	"context"
	"sync"

	"github.com/animuse/animuse/internal/domain/profile"
)

// maxActivityPerUser bounds the in-memory watchlist history.
const maxActivityPerUser = 200

// MemoryRepository keeps profiles in process memory for tests/dev.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]profile.Snapshot
	activity map[string][]profile.Activity
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[string]profile.Snapshot),
		activity: make(map[string][]profile.Activity),
	}
}

// Get returns the stored snapshot.
func (r *MemoryRepository) Get(_ context.Context, userID string) (profile.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.profiles[userID]
	return snap, ok, nil
}

// Save replaces the snapshot.
func (r *MemoryRepository) Save(_ context.Context, snap profile.Snapshot) (profile.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[snap.UserID] = snap
	return snap, nil
}

// AppendActivity records a watchlist change, newest first.
func (r *MemoryRepository) AppendActivity(_ context.Context, userID string, activity profile.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append([]profile.Activity{activity}, r.activity[userID]...)
	if len(list) > maxActivityPerUser {
		list = list[:maxActivityPerUser]
	}
	r.activity[userID] = list
	return nil
}

// RecentActivity returns up to limit entries, newest first.
func (r *MemoryRepository) RecentActivity(_ context.Context, userID string, limit int) ([]profile.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.activity[userID]
	if limit < 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]profile.Activity, limit)
	copy(out, list[:limit])
	return out, nil
}

var _ profile.Repository = (*MemoryRepository)(nil)
