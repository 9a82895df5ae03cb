package domain

import "time"

// SyncStatus is a side channel recording partial-failure state on a movie
// without blocking its primary fields from being usable.
type SyncStatus string

const (
	// SyncPeopleSyncPending marks a movie whose primary fields saved but whose
	// cast/crew sync failed; a later pass repairs it.
	SyncPeopleSyncPending SyncStatus = "people_sync_pending"
	// SyncEnrichmentFailed marks a movie the metadata provider could not
	// resolve at all. It is terminal: the record is never re-enriched
	// automatically, which prevents infinite reprocessing loops.
	SyncEnrichmentFailed SyncStatus = "enrichment_failed"
)

// Movie is a catalog record, identified externally by its TMDB id.
// Enrichment is an idempotent upsert keyed on TMDBID.
//
// BackdropURL uses a three-state encoding: nil means never fetched, empty
// string means the provider has no backdrop (known-absent, terminal), and a
// non-empty value is the derived image URL.
type Movie struct {
	ID          string        `json:"id"`
	TMDBID      *int64        `json:"tmdb_id,omitempty"`
	IMDbID      *string       `json:"imdb_id,omitempty"`
	Title       string        `json:"title"`
	ReleaseYear int           `json:"release_year,omitempty"`
	Overview    string        `json:"overview,omitempty"`
	PosterURL   *string       `json:"poster_url,omitempty"`
	BackdropURL *string       `json:"backdrop_url,omitempty"`
	Details     *MovieDetails `json:"details,omitempty"`
	SyncStatus  *SyncStatus   `json:"sync_status,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MovieDetails is the extended attribute bag populated by enrichment.
type MovieDetails struct {
	Runtime         int      `json:"runtime,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	Cast            []Credit `json:"cast,omitempty"`
	Crew            []Credit `json:"crew,omitempty"`
	Recommendations []int64  `json:"recommendations,omitempty"`
}

// Credit is one cast or crew entry.
type Credit struct {
	TMDBPersonID int64  `json:"tmdb_person_id"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
}

// DetailsComplete reports whether the extended attributes hold the minimal
// set that marks enrichment as done. Incompleteness is the trigger for
// on-demand or batch enrichment.
func (m *Movie) DetailsComplete() bool {
	if m.Details == nil {
		return false
	}
	return m.Details.Runtime > 0 && len(m.Details.Genres) > 0 && len(m.Details.Cast) > 0
}
