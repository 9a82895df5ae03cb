package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/VasquezCodes/CineMatch-sub000/internal/api/middleware"
	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/service"
)

// historyLimit caps the import-history page size.
const historyLimit = 200

// ImportHandler handles the client-facing import endpoints.
// Caller identity arrives as a trusted X-User-ID header; session handling
// lives upstream of this service.
type ImportHandler struct {
	svc    *service.ImportService
	logger *zap.Logger
}

func NewImportHandler(svc *service.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/imports
//
// Accepts a list of import records and queues them; nothing is processed
// synchronously. Responds 202 with the enqueue summary.
func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ownerID := r.Header.Get("X-User-ID")
	summary, err := h.svc.Enqueue(r.Context(), ownerID, req.Movies)
	if err != nil {
		h.logger.Warn("enqueue failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, summary)
}

// Status handles GET /api/v1/imports/status, a JSON queue depth snapshot.
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue status")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// History handles GET /api/v1/imports/history, the caller's queue rows,
// including failed items awaiting operator attention.
func (h *ImportHandler) History(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get("X-User-ID")
	items, err := h.svc.History(r.Context(), ownerID, historyLimit)
	if err != nil {
		mapError(w, err)
		return
	}
	if items == nil {
		items = []*domain.QueueItem{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}
