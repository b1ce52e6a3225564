package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheetlot/scanbackend/models"
	"github.com/sheetlot/scanbackend/services"
)

// SessionHandler exposes the transient pairing state of a work session.
type SessionHandler struct {
	Scans *services.ScanService
}

func NewSessionHandler(scans *services.ScanService) *SessionHandler {
	return &SessionHandler{Scans: scans}
}

type pairingStateResponse struct {
	SessionID      string           `json:"session_id"`
	FaceEntity     *string          `json:"face_entity,omitempty"`
	VersoEntity    *string          `json:"verso_entity,omitempty"`
	LastSide       models.SheetSide `json:"last_side,omitempty"`
	LastEntity     *string          `json:"last_entity,omitempty"`
	ReadyToCombine bool             `json:"ready_to_combine"`
}

// GetPairing handles GET /api/sessions/{sessionID}/pairing and reports the
// session's active face/verso pair and which side was touched last.
func (h *SessionHandler) GetPairing(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	faceID, versoID := h.Scans.Pairing.ActivePair(sessionID)
	lastSide, lastID := h.Scans.Pairing.MostRecent(sessionID)

	writeJSON(w, http.StatusOK, pairingStateResponse{
		SessionID:      sessionID,
		FaceEntity:     faceID,
		VersoEntity:    versoID,
		LastSide:       lastSide,
		LastEntity:     lastID,
		ReadyToCombine: faceID != nil && versoID != nil,
	})
}

// ResetPairing handles DELETE /api/sessions/{sessionID}/pairing and drops the
// session's transient pairing state. Stored entities and records are
// untouched; the operator starts the next sheet pair clean.
func (h *SessionHandler) ResetPairing(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	h.Scans.Pairing.ClearSession(sessionID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"cleared":    true,
	})
}
