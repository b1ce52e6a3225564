package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheetlot/scanbackend/services"
	"github.com/sheetlot/scanbackend/workers"
)

// ExtractionHandler serves crop extraction and AI metadata routes, both the
// synchronous record variants and the queued async variants.
type ExtractionHandler struct {
	Scans *services.ScanService
	Tasks *workers.TaskProcessor
}

func NewExtractionHandler(scans *services.ScanService, tasks *workers.TaskProcessor) *ExtractionHandler {
	return &ExtractionHandler{Scans: scans, Tasks: tasks}
}

type recordExtractionRequest struct {
	SessionID     string   `json:"session_id"`
	CropPaths     []string `json:"crop_paths"`
	RowBoundaries []int    `json:"row_boundaries"`
	ColBoundaries []int    `json:"col_boundaries"`
}

type recordMetadataRequest struct {
	SessionID string            `json:"session_id"`
	Fields    map[string]string `json:"fields"`
}

type queueRequest struct {
	SessionID string `json:"session_id"`
}

// RecordExtraction handles POST /api/scans/{entityID}/extraction, recording
// crop results produced elsewhere.
func (h *ExtractionHandler) RecordExtraction(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req recordExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	if err := h.Scans.RecordExtraction(entityID, req.SessionID, req.CropPaths, req.RowBoundaries, req.ColBoundaries); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entity_id":  entityID,
		"crop_count": len(req.CropPaths),
	})
}

// RecordAIMetadata handles POST /api/scans/{entityID}/metadata, merging
// recognized metadata fields into the processing record.
func (h *ExtractionHandler) RecordAIMetadata(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req recordMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	if err := h.Scans.RecordAIMetadata(entityID, req.SessionID, req.Fields); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entity_id": entityID})
}

// QueueExtraction handles POST /api/scans/{entityID}/extract and enqueues an
// async crop extraction task.
func (h *ExtractionHandler) QueueExtraction(w http.ResponseWriter, r *http.Request) {
	h.queueTask(w, r, workers.TaskExtraction)
}

// QueueAIExtraction handles POST /api/scans/{entityID}/ai_extract and enqueues
// an async AI metadata extraction task.
func (h *ExtractionHandler) QueueAIExtraction(w http.ResponseWriter, r *http.Request) {
	h.queueTask(w, r, workers.TaskAI)
}

func (h *ExtractionHandler) queueTask(w http.ResponseWriter, r *http.Request, taskType string) {
	entityID := chi.URLParam(r, "entityID")

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id is required")
		return
	}

	queued := h.Tasks.QueueJob(workers.TaskJob{
		EntityID:  entityID,
		SessionID: req.SessionID,
		TaskType:  taskType,
	})
	if !queued {
		WriteAPIError(w, http.StatusServiceUnavailable, "QUEUE_FULL", "task queue is full, retry later")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"entity_id": entityID,
		"task":      taskType,
		"status":    "queued",
	})
}
