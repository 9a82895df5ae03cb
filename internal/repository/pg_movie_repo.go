package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
)

type pgMovieRepository struct {
	pool *pgxpool.Pool
}

// NewPgMovieRepository returns a MovieRepository backed by PostgreSQL.
func NewPgMovieRepository(pool *pgxpool.Pool) MovieRepository {
	return &pgMovieRepository{pool: pool}
}

const movieColumns = `id, tmdb_id, imdb_id, title, release_year, overview,
	poster_url, backdrop_url, details, sync_status, created_at, updated_at`

func (r *pgMovieRepository) Upsert(ctx context.Context, m *domain.Movie) (bool, error) {
	details, err := marshalDetails(m.Details)
	if err != nil {
		return false, err
	}

	// xmax = 0 only on a freshly inserted row, which distinguishes insert
	// from conflict-update without a second round trip.
	var created bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO movies
			(id, tmdb_id, imdb_id, title, release_year, overview,
			 poster_url, backdrop_url, details, sync_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			imdb_id      = COALESCE(EXCLUDED.imdb_id, movies.imdb_id),
			title        = EXCLUDED.title,
			release_year = EXCLUDED.release_year,
			overview     = EXCLUDED.overview,
			poster_url   = COALESCE(EXCLUDED.poster_url, movies.poster_url),
			backdrop_url = COALESCE(EXCLUDED.backdrop_url, movies.backdrop_url),
			sync_status  = EXCLUDED.sync_status,
			updated_at   = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		m.ID, m.TMDBID, m.IMDbID, m.Title, m.ReleaseYear, m.Overview,
		m.PosterURL, m.BackdropURL, details, m.SyncStatus, m.CreatedAt, m.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert movie: %w", err)
	}
	return created, nil
}

func (r *pgMovieRepository) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	m, err := scanMovie(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return m, err
}

func (r *pgMovieRepository) GetByTMDBID(ctx context.Context, tmdbID int64) (*domain.Movie, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE tmdb_id = $1`, tmdbID)
	m, err := scanMovie(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return m, err
}

func (r *pgMovieRepository) UpdateDetails(ctx context.Context, id string, details *domain.MovieDetails) error {
	payload, err := marshalDetails(details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE movies
		SET details = $1, sync_status = NULL, updated_at = NOW()
		WHERE id = $2`, payload, id)
	if err != nil {
		return fmt.Errorf("update movie details: %w", err)
	}
	return nil
}

func (r *pgMovieRepository) SetSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE movies SET sync_status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}

func (r *pgMovieRepository) SetBackdropURL(ctx context.Context, id, url string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE movies SET backdrop_url = $1, updated_at = NOW() WHERE id = $2`,
		url, id)
	if err != nil {
		return fmt.Errorf("set backdrop url: %w", err)
	}
	return nil
}

func (r *pgMovieRepository) FindMissingBackdrop(ctx context.Context, limit int) ([]*domain.Movie, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+movieColumns+`
		FROM movies
		WHERE backdrop_url IS NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("find missing backdrop: %w", err)
	}
	defer rows.Close()

	var result []*domain.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *pgMovieRepository) CountMissingBackdrop(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM movies WHERE backdrop_url IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count missing backdrop: %w", err)
	}
	return n, nil
}

// ---- helpers ----

func scanMovie(row pgx.Row) (*domain.Movie, error) {
	var m domain.Movie
	var details []byte
	err := row.Scan(
		&m.ID, &m.TMDBID, &m.IMDbID, &m.Title, &m.ReleaseYear, &m.Overview,
		&m.PosterURL, &m.BackdropURL, &details, &m.SyncStatus,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		m.Details = &domain.MovieDetails{}
		if err := json.Unmarshal(details, m.Details); err != nil {
			return nil, fmt.Errorf("unmarshal movie details: %w", err)
		}
	}
	return &m, nil
}

func marshalDetails(details *domain.MovieDetails) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal movie details: %w", err)
	}
	return payload, nil
}
