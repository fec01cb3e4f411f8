package profile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/animuse/animuse/pkg/errors"
)

const maxListEntries = 25

// Service exposes profile reads and the preferences form workflow.
type Service interface {
	Get(ctx context.Context, userID string) (Snapshot, error)
	Update(ctx context.Context, userID string, req UpdateRequest) (Snapshot, error)
	RecordActivity(ctx context.Context, userID string, req ActivityRequest) (Activity, error)
	RecentActivity(ctx context.Context, userID string, limit int) ([]Activity, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "profile.service"),
		now:    time.Now,
	}
}

// Get returns the stored snapshot, or an empty one for users that never saved
// preferences. Such users have not completed onboarding.
func (s *service) Get(ctx context.Context, userID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeUnauthorized, "missing user", nil)
	}
	snap, found, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeProfileError, "failed to load profile", err)
	}
	if !found {
		return emptySnapshot(userID), nil
	}
	return withLists(snap), nil
}

func (s *service) Update(ctx context.Context, userID string, req UpdateRequest) (Snapshot, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if req.Name != nil {
		current.Name = strings.TrimSpace(*req.Name)
	}
	mergeList(&current.Moods, req.Moods)
	mergeList(&current.Genres, req.Genres)
	mergeList(&current.FavoriteAnimes, req.FavoriteAnimes)
	mergeList(&current.DislikedGenres, req.DislikedGenres)
	mergeList(&current.DislikedTags, req.DislikedTags)
	mergeList(&current.CharacterArchetypes, req.CharacterArchetypes)
	mergeList(&current.TropesLiked, req.TropesLiked)
	mergeList(&current.TropesDisliked, req.TropesDisliked)
	mergeList(&current.ArtStyles, req.ArtStyles)
	if req.ExperienceLevel != nil {
		current.ExperienceLevel = strings.TrimSpace(*req.ExperienceLevel)
	}
	if req.WatchPacing != nil {
		current.WatchPacing = strings.TrimSpace(*req.WatchPacing)
	}
	if req.OnboardingCompleted != nil {
		current.OnboardingCompleted = *req.OnboardingCompleted
	}
	current.UpdatedAt = s.now().UTC()

	saved, err := s.repo.Save(ctx, current)
	if err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeProfileError, "failed to save profile", err)
	}
	s.logger.Info("profile updated", "user_id", userID, "onboarded", saved.OnboardingCompleted)
	return withLists(saved), nil
}

func (s *service) RecordActivity(ctx context.Context, userID string, req ActivityRequest) (Activity, error) {
	if strings.TrimSpace(userID) == "" {
		return Activity{}, apperrors.Wrap(apperrors.CodeUnauthorized, "missing user", nil)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Activity{}, apperrors.Wrap(apperrors.CodeInvalidInput, "title cannot be empty", nil)
	}
	status, ok := canonicalStatus(req.Status)
	if !ok {
		return Activity{}, apperrors.Wrap(apperrors.CodeInvalidInput, "unsupported watchlist status", nil)
	}
	if req.UserRating != nil && (*req.UserRating < 0 || *req.UserRating > 10) {
		return Activity{}, apperrors.Wrap(apperrors.CodeInvalidInput, "userRating must be between 0 and 10", nil)
	}
	activity := Activity{
		Title:      title,
		Status:     status,
		UserRating: req.UserRating,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.AppendActivity(ctx, userID, activity); err != nil {
		return Activity{}, apperrors.Wrap(apperrors.CodeProfileError, "failed to record activity", err)
	}
	return activity, nil
}

func (s *service) RecentActivity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := s.repo.RecentActivity(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeProfileError, "failed to load activity", err)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func canonicalStatus(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "watching":
		return StatusWatching, true
	case "completed":
		return StatusCompleted, true
	case "plan to watch", "plan_to_watch", "planned":
		return StatusPlanToWatch, true
	case "dropped":
		return StatusDropped, true
	default:
		return "", false
	}
}

// mergeList replaces dst when the form sent the field at all. Entries are
// trimmed, de-duplicated and capped.
func mergeList(dst *[]string, incoming []string) {
	if incoming == nil {
		return
	}
	out := make([]string, 0, len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, item := range incoming {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, clean)
		if len(out) == maxListEntries {
			break
		}
	}
	*dst = out
}

func emptySnapshot(userID string) Snapshot {
	return withLists(Snapshot{UserID: userID})
}

func withLists(s Snapshot) Snapshot {
	for _, list := range []*[]string{
		&s.Moods, &s.Genres, &s.FavoriteAnimes, &s.DislikedGenres, &s.DislikedTags,
		&s.CharacterArchetypes, &s.TropesLiked, &s.TropesDisliked, &s.ArtStyles,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
	return s
}
