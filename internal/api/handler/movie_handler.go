package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/enrich"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
)

// MovieHandler serves catalog reads. Reads double as the on-demand
// enrichment trigger: a movie with incomplete extended attributes is
// enriched in-request, best-effort.
type MovieHandler struct {
	movies   repository.MovieRepository
	enricher *enrich.Enricher
	logger   *zap.Logger
}

func NewMovieHandler(movies repository.MovieRepository, enricher *enrich.Enricher, logger *zap.Logger) *MovieHandler {
	return &MovieHandler{movies: movies, enricher: enricher, logger: logger}
}

// GetByID handles GET /api/v1/movies/{id}
//
// When the extended attributes are incomplete the enricher is invoked on
// the spot; an enrichment failure degrades to serving whatever fields the
// row already holds. This path races safely with the queue worker: both
// converge through the store's upsert/update primitives.
func (h *MovieHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	movie, err := h.movies.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}

	if !movie.DetailsComplete() {
		enriched, err := h.enricher.EnsureDetails(r.Context(), movie)
		if err != nil {
			h.logger.Warn("on-demand enrichment failed",
				zap.String("movie_id", id), zap.Error(err))
		} else {
			movie = enriched
		}
	}

	respondJSON(w, http.StatusOK, movie)
}
