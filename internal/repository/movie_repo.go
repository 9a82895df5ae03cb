package repository

import (
	"context"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
)

// MovieRepository defines persistence operations for catalog records.
// All writes use the store's atomic upsert/update primitives; there are no
// transactions spanning multiple calls, so concurrent enrichers of the same
// record interleave safely (last write per column wins).
type MovieRepository interface {
	// Upsert inserts the movie or, when a row with the same tmdb_id exists,
	// updates its primary fields in place. Returns true when a new row was
	// created. Running the same payload twice never produces two rows.
	Upsert(ctx context.Context, m *domain.Movie) (bool, error)

	GetByID(ctx context.Context, id string) (*domain.Movie, error)
	GetByTMDBID(ctx context.Context, tmdbID int64) (*domain.Movie, error)

	// UpdateDetails replaces the extended attribute bag and clears any
	// sync_status marker.
	UpdateDetails(ctx context.Context, id string, details *domain.MovieDetails) error

	// SetSyncStatus records a partial-failure marker without touching other fields.
	SetSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error

	// SetBackdropURL writes the backdrop column. An empty string is the
	// known-absent sentinel: it keeps the row out of FindMissingBackdrop on
	// every later pass.
	SetBackdropURL(ctx context.Context, id string, url string) error

	// FindMissingBackdrop returns up to limit movies whose backdrop has never
	// been fetched (NULL, as opposed to the '' known-absent marker).
	FindMissingBackdrop(ctx context.Context, limit int) ([]*domain.Movie, error)
	CountMissingBackdrop(ctx context.Context) (int, error)
}
