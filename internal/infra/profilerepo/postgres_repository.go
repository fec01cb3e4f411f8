package profilerepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/animuse/animuse/internal/domain/profile"
)

// PostgresRepository persists profiles and watchlist activity in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get fetches a profile by user id.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (profile.Snapshot, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, name, moods, genres, favorite_animes, disliked_genres, disliked_tags,
		       character_archetypes, tropes_liked, tropes_disliked, art_styles,
		       experience_level, watch_pacing, onboarding_completed, updated_at
		FROM user_profiles
		WHERE user_id = $1
		LIMIT 1
	`, userID)
	if err != nil {
		return profile.Snapshot{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return profile.Snapshot{}, false, rows.Err()
	}
	snap, err := scanSnapshot(rows)
	if err != nil {
		return profile.Snapshot{}, false, err
	}
	return snap, true, rows.Err()
}

// Save upserts the profile row.
func (r *PostgresRepository) Save(ctx context.Context, snap profile.Snapshot) (profile.Snapshot, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (
			user_id, name, moods, genres, favorite_animes, disliked_genres, disliked_tags,
			character_archetypes, tropes_liked, tropes_disliked, art_styles,
			experience_level, watch_pacing, onboarding_completed, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			moods = EXCLUDED.moods,
			genres = EXCLUDED.genres,
			favorite_animes = EXCLUDED.favorite_animes,
			disliked_genres = EXCLUDED.disliked_genres,
			disliked_tags = EXCLUDED.disliked_tags,
			character_archetypes = EXCLUDED.character_archetypes,
			tropes_liked = EXCLUDED.tropes_liked,
			tropes_disliked = EXCLUDED.tropes_disliked,
			art_styles = EXCLUDED.art_styles,
			experience_level = EXCLUDED.experience_level,
			watch_pacing = EXCLUDED.watch_pacing,
			onboarding_completed = EXCLUDED.onboarding_completed,
			updated_at = EXCLUDED.updated_at
		RETURNING user_id, name, moods, genres, favorite_animes, disliked_genres, disliked_tags,
		          character_archetypes, tropes_liked, tropes_disliked, art_styles,
		          experience_level, watch_pacing, onboarding_completed, updated_at
	`, snap.UserID, snap.Name, snap.Moods, snap.Genres, snap.FavoriteAnimes, snap.DislikedGenres,
		snap.DislikedTags, snap.CharacterArchetypes, snap.TropesLiked, snap.TropesDisliked,
		snap.ArtStyles, snap.ExperienceLevel, snap.WatchPacing, snap.OnboardingCompleted, snap.UpdatedAt)
	return scanSnapshot(row)
}

// AppendActivity inserts a watchlist change.
func (r *PostgresRepository) AppendActivity(ctx context.Context, userID string, activity profile.Activity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO watchlist_activity (user_id, title, status, user_rating, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, activity.Title, activity.Status, activity.UserRating, activity.CreatedAt)
	return err
}

// RecentActivity returns up to limit entries, newest first.
func (r *PostgresRepository) RecentActivity(ctx context.Context, userID string, limit int) ([]profile.Activity, error) {
	if limit <= 0 {
		return []profile.Activity{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT title, status, user_rating, created_at
		FROM watchlist_activity
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]profile.Activity, 0, limit)
	for rows.Next() {
		var (
			item    profile.Activity
			created time.Time
		)
		if err := rows.Scan(&item.Title, &item.Status, &item.UserRating, &created); err != nil {
			return nil, err
		}
		item.CreatedAt = created.UTC()
		out = append(out, item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (profile.Snapshot, error) {
	var (
		snap    profile.Snapshot
		updated time.Time
	)
	if err := row.Scan(
		&snap.UserID, &snap.Name, &snap.Moods, &snap.Genres, &snap.FavoriteAnimes,
		&snap.DislikedGenres, &snap.DislikedTags, &snap.CharacterArchetypes,
		&snap.TropesLiked, &snap.TropesDisliked, &snap.ArtStyles,
		&snap.ExperienceLevel, &snap.WatchPacing, &snap.OnboardingCompleted, &updated,
	); err != nil {
		return profile.Snapshot{}, err
	}
	snap.UpdatedAt = updated.UTC()
	return snap, nil
}

var _ profile.Repository = (*PostgresRepository)(nil)
