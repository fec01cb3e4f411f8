package recommend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/animuse/animuse/internal/domain/profile"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type stubProfiles struct {
	mu        sync.Mutex
	snapshots map[string]profile.Snapshot
	activity  []profile.Activity
	err       error
}

func onboardedProfiles(userIDs ...string) *stubProfiles {
	p := &stubProfiles{snapshots: make(map[string]profile.Snapshot)}
	for _, id := range userIDs {
		p.snapshots[id] = profile.Snapshot{
			UserID:              id,
			Moods:               []string{"Cozy"},
			Genres:              []string{"Slice of Life"},
			OnboardingCompleted: true,
		}
	}
	return p
}

func (p *stubProfiles) Get(_ context.Context, userID string) (profile.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return profile.Snapshot{}, p.err
	}
	if snap, ok := p.snapshots[userID]; ok {
		return snap, nil
	}
	return profile.Snapshot{UserID: userID}, nil
}

func (p *stubProfiles) RecentActivity(_ context.Context, _ string, limit int) ([]profile.Activity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit > len(p.activity) {
		limit = len(p.activity)
	}
	return append([]profile.Activity(nil), p.activity[:limit]...), nil
}

type stubFetcher struct {
	mu       sync.Mutex
	requests []FetchRequest
	fn       func(ctx context.Context, req FetchRequest) (FetchResult, error)
}

func (s *stubFetcher) FetchRecommendations(ctx context.Context, req FetchRequest) (FetchResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	fn := s.fn
	s.mu.Unlock()
	return fn(ctx, req)
}

func (s *stubFetcher) setFn(fn func(ctx context.Context, req FetchRequest) (FetchResult, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
}

func (s *stubFetcher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubFetcher) lastRequest() FetchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func returning(items ...RawItem) func(context.Context, FetchRequest) (FetchResult, error) {
	return func(context.Context, FetchRequest) (FetchResult, error) {
		return FetchResult{Recommendations: items}, nil
	}
}

func failing(msg string) func(context.Context, FetchRequest) (FetchResult, error) {
	return func(context.Context, FetchRequest) (FetchResult, error) {
		return FetchResult{}, errors.New(msg)
	}
}

// blocking holds every call until release is closed.
func blocking(release <-chan struct{}, items ...RawItem) func(context.Context, FetchRequest) (FetchResult, error) {
	return func(ctx context.Context, _ FetchRequest) (FetchResult, error) {
		select {
		case <-release:
			return FetchResult{Recommendations: items}, nil
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Level, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Level)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func titles(n int) []RawItem {
	out := make([]RawItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, RawItem{"title": string(rune('A' + i)), "rating": 8.0})
	}
	return out
}
