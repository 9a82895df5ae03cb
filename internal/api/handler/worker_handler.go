package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

// WorkerHandler exposes the two worker entry points. Authentication is
// enforced by the WorkerSecret middleware before these run; any error
// escaping a runner surfaces here as a 500 with the error text.
type WorkerHandler struct {
	runner   *worker.Runner
	backfill *worker.Backfill
	logger   *zap.Logger
}

func NewWorkerHandler(runner *worker.Runner, backfill *worker.Backfill, logger *zap.Logger) *WorkerHandler {
	return &WorkerHandler{runner: runner, backfill: backfill, logger: logger}
}

// RunImport handles POST /workers/import: one time-boxed draining
// invocation of the import worker.
func (h *WorkerHandler) RunImport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.Error("import worker invocation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// RunBackfill handles POST /workers/backfill: one time-boxed invocation of
// the backdrop backfill worker.
func (h *WorkerHandler) RunBackfill(w http.ResponseWriter, r *http.Request) {
	summary, err := h.backfill.Run(r.Context())
	if err != nil {
		h.logger.Error("backfill worker invocation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
