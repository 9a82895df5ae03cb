package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/api/handler"
	apimw "github.com/VasquezCodes/CineMatch-sub000/internal/api/middleware"
	"github.com/VasquezCodes/CineMatch-sub000/internal/enrich"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/service"
	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	imports *service.ImportService,
	movies repository.MovieRepository,
	enricher *enrich.Enricher,
	runner *worker.Runner,
	backfill *worker.Backfill,
	workerSecret string,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(8<<20)) // 8 MB max request body; imports carry up to 10k records
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	ih := handler.NewImportHandler(imports, logger)
	mh := handler.NewMovieHandler(movies, enricher, logger)
	wh := handler.NewWorkerHandler(runner, backfill, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports", ih.Create)
		r.Get("/imports/status", ih.Status)
		r.Get("/imports/history", ih.History)

		r.Get("/movies/{id}", mh.GetByID)
	})

	// Worker entry points, shared-secret guarded. These are the targets of
	// the recursive trigger chain as well as any external scheduler.
	r.Route("/workers", func(r chi.Router) {
		r.Use(apimw.WorkerSecret(workerSecret))
		r.Post("/import", wh.RunImport)
		r.Post("/backfill", wh.RunBackfill)
	})

	return r
}
