package domain

import "time"

// ImportStatus tracks the lifecycle of a queue item.
// There is deliberately no "done" status: a successfully processed item is
// deleted, so absence from the table is the completion signal.
type ImportStatus string

const (
	StatusPending    ImportStatus = "pending"
	StatusProcessing ImportStatus = "processing"
	StatusFailed     ImportStatus = "failed"
)

// ImportRecord is the raw payload a user submits for one title.
// The queue stores it as opaque JSON; only the enricher interprets it.
type ImportRecord struct {
	Title     string     `json:"title"`
	Year      int        `json:"year,omitempty"`
	TMDBID    int64      `json:"tmdb_id,omitempty"`
	IMDbID    string     `json:"imdb_id,omitempty"`
	Rating    float64    `json:"rating,omitempty"`
	WatchedAt *time.Time `json:"watched_at,omitempty"`
}

func (r *ImportRecord) Validate() error {
	if r.Title == "" && r.TMDBID == 0 && r.IMDbID == "" {
		return ErrInvalidRecord
	}
	if r.Rating < 0 || r.Rating > 10 {
		return ErrInvalidRecord
	}
	return nil
}

// QueueItem is one unit of pending import work.
type QueueItem struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	Payload      ImportRecord `json:"payload"`
	Status       ImportStatus `json:"status"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CreateImportRequest is the inbound payload for the enqueue endpoint.
type CreateImportRequest struct {
	Movies []ImportRecord `json:"movies"`
}

// EnqueueSummary is the enqueue endpoint's response body.
//
// NewMovies counts records accepted into the queue, not newly created catalog
// rows. The field name survives from an earlier synchronous import design and
// is kept for client compatibility. UpdatedMovies is always zero on this
// asynchronous path for the same reason.
type EnqueueSummary struct {
	Success       bool `json:"success"`
	Total         int  `json:"total"`
	NewMovies     int  `json:"new_movies"`
	UpdatedMovies int  `json:"updated_movies"`
	Errors        int  `json:"errors"`
}

// RunSummary is the import worker's response body for one invocation.
type RunSummary struct {
	Processed int  `json:"processed"`
	Succeeded int  `json:"success"`
	Failed    int  `json:"failed"`
	Remaining int  `json:"remaining"`
	Recursive bool `json:"recursive"`
}

// BackfillSummary is the backdrop backfill worker's response body.
type BackfillSummary struct {
	Processed int  `json:"processed"`
	Updated   int  `json:"updated"`
	Skipped   int  `json:"skipped"`
	Errors    int  `json:"errors"`
	Remaining int  `json:"remaining"`
	Recursive bool `json:"recursive"`
}

// QueueSnapshot reports current queue depth per status.
type QueueSnapshot struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}
