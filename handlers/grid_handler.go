package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheetlot/scanbackend/services"
)

// GridHandler serves grid resolution and override routes.
type GridHandler struct {
	Scans *services.ScanService
}

func NewGridHandler(scans *services.ScanService) *GridHandler {
	return &GridHandler{Scans: scans}
}

type resolveGridRequest struct {
	SessionID string `json:"session_id"`
}

type gridOverrideRequest struct {
	SessionID string `json:"session_id"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
}

// ResolveGrid handles POST /api/scans/{entityID}/grid/resolve.
func (h *GridHandler) ResolveGrid(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req resolveGridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	result, err := h.Scans.ResolveGrid(entityID, req.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SetGridOverride handles PUT /api/scans/{entityID}/grid.
func (h *GridHandler) SetGridOverride(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req gridOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	if err := h.Scans.SetGridOverride(entityID, req.SessionID, req.Rows, req.Cols); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entity_id": entityID,
		"rows":      req.Rows,
		"cols":      req.Cols,
	})
}
