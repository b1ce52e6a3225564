package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sheetlot/scanbackend/services"
)

// CombinedHandler serves combined-entity derivation for a pairing session.
type CombinedHandler struct {
	Scans *services.ScanService
}

func NewCombinedHandler(scans *services.ScanService) *CombinedHandler {
	return &CombinedHandler{Scans: scans}
}

type deriveCombinedRequest struct {
	SessionID string `json:"session_id"`
}

// DeriveCombined handles POST /api/combined. When the session's active pair
// has completed crops on both sides it composes and returns the combined
// entity; otherwise it reports that the pair is still pending.
func (h *CombinedHandler) DeriveCombined(w http.ResponseWriter, r *http.Request) {
	var req deriveCombinedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	entity, err := h.Scans.DeriveCombined(req.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entity == nil {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"session_id": req.SessionID,
			"status":     "pending",
		})
		return
	}

	writeJSON(w, http.StatusOK, entityResponse{Entity: entity})
}
