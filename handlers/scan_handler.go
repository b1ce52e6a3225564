package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/models"
	"github.com/sheetlot/scanbackend/repository"
	"github.com/sheetlot/scanbackend/services"
)

const maxUploadBytes = 64 << 20 // 64 MiB

// ScanHandler serves upload and lookup routes for scan entities.
type ScanHandler struct {
	Scans    *services.ScanService
	Entities repository.EntityRepositoryInterface
	Records  repository.RecordRepositoryInterface
}

func NewScanHandler(scans *services.ScanService, entities repository.EntityRepositoryInterface, records repository.RecordRepositoryInterface) *ScanHandler {
	return &ScanHandler{Scans: scans, Entities: entities, Records: records}
}

type entityResponse struct {
	Entity *models.ScanEntity       `json:"entity"`
	Record *models.ProcessingRecord `json:"record,omitempty"`
}

// UploadScan handles POST /api/scans. Multipart form fields: file, side,
// session_id. Uploading the same bytes twice returns the existing entity.
func (h *ScanHandler) UploadScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "INVALID_FORM", "could not parse multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_SESSION", "session_id form field is required")
		return
	}
	side := models.SheetSide(r.FormValue("side"))

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_FILE", "file form field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "READ_FAILED", "could not read uploaded file")
		return
	}
	if len(data) > maxUploadBytes {
		WriteAPIError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "uploaded file exceeds size limit")
		return
	}

	entity, err := h.Scans.Ingest(data, side, header.Filename, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Printf("handlers.scan: ingested %s side=%s entity=%s", header.Filename, side, entity.ID)
	writeJSON(w, http.StatusOK, entityResponse{Entity: entity})
}

// GetEntity handles GET /api/scans/{entityID} and returns the entity together
// with its processing record when one exists.
func (h *ScanHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	entity, err := h.Entities.GetByID(entityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "entity not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	record, err := h.Records.Find(entityID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entityResponse{Entity: entity, Record: record})
}
