package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sheetlot/scanbackend/models"
	"github.com/sheetlot/scanbackend/repository"
	"github.com/sheetlot/scanbackend/services"
)

// ActivityHandler serves the append-only activity log routes.
type ActivityHandler struct {
	Scans    *services.ScanService
	Activity repository.ActivityRepositoryInterface
}

func NewActivityHandler(scans *services.ScanService, activity repository.ActivityRepositoryInterface) *ActivityHandler {
	return &ActivityHandler{Scans: scans, Activity: activity}
}

type logActivityRequest struct {
	SessionID string                 `json:"session_id"`
	EntityID  *string                `json:"entity_id,omitempty"`
	Action    string                 `json:"action"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// LogActivity handles POST /api/activity and appends one entry.
func (h *ActivityHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	var req logActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	action := models.ActivityAction(req.Action)
	if !models.ValidAction(action) {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_ACTION", "unknown activity action: "+req.Action)
		return
	}

	if err := h.Scans.LogActivity(req.SessionID, req.EntityID, action, req.Detail); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": req.SessionID,
		"action":     req.Action,
	})
}

// ListActivity handles GET /api/sessions/{sessionID}/activity. Entries come
// back newest first; the optional limit query parameter caps the count.
func (h *ActivityHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteAPIError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.Activity.ListBySession(sessionID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"entries":    entries,
	})
}
