package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRecord  = errors.New("import record needs a title, tmdb_id, or imdb_id, and a rating between 0 and 10")
	ErrImportEmpty    = errors.New("import must contain at least one record")
	ErrImportTooLarge = errors.New("import exceeds maximum of 10000 records")
	ErrMissingOwner   = errors.New("caller identity header is required")
)
