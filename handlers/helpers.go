package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/sheetlot/scanbackend/gemini"
	"github.com/sheetlot/scanbackend/media"
	"github.com/sheetlot/scanbackend/repository"
	"github.com/sheetlot/scanbackend/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: failed to encode JSON response: %v", err)
	}
}

// writeServiceError maps service and store errors onto the API error format.
func writeServiceError(w http.ResponseWriter, err error) {
	var hashErr *media.HashingError
	var detectErr *media.DetectionError
	var extractErr *gemini.ExtractionError
	var mergeErr *repository.InvalidMergeFieldError
	var ioErr *repository.StoreIOError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "entity not found")
	case errors.Is(err, services.ErrUnknownSide):
		WriteAPIError(w, http.StatusBadRequest, "INVALID_SIDE", err.Error())
	case errors.Is(err, services.ErrInvalidGrid):
		WriteAPIError(w, http.StatusBadRequest, "INVALID_GRID", err.Error())
	case errors.Is(err, services.ErrGridUnresolved):
		WriteAPIError(w, http.StatusConflict, "GRID_UNRESOLVED", err.Error())
	case errors.Is(err, services.ErrNoOverlappingCells):
		WriteAPIError(w, http.StatusConflict, "NO_OVERLAPPING_CELLS", err.Error())
	case errors.As(err, &hashErr):
		WriteAPIError(w, http.StatusBadRequest, "HASHING_FAILED", hashErr.Error())
	case errors.As(err, &mergeErr):
		WriteAPIError(w, http.StatusUnprocessableEntity, "INVALID_FIELD", mergeErr.Error())
	case errors.As(err, &detectErr):
		WriteAPIError(w, http.StatusUnprocessableEntity, "DETECTION_FAILED", detectErr.Error())
	case errors.As(err, &extractErr):
		WriteAPIError(w, http.StatusBadGateway, "EXTRACTION_FAILED", extractErr.Error())
	case errors.As(err, &ioErr):
		WriteAPIError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", ioErr.Error())
	default:
		log.Printf("handlers: internal error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
