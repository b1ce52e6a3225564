package handlers

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sheetlot/scanbackend/media"
)

// AssetServer streams stored files (uploads, crops, combined composites, lot
// strips) back to clients by their store-relative path.
type AssetServer struct {
	Store media.Store
}

func NewAssetServer(store media.Store) *AssetServer {
	return &AssetServer{Store: store}
}

// ServeAsset handles GET /api/assets/*. The wildcard is the store-relative
// path returned by upload and extraction responses.
func (s *AssetServer) ServeAsset(w http.ResponseWriter, r *http.Request) {
	relativePath := chi.URLParam(r, "*")
	if relativePath == "" {
		WriteAPIError(w, http.StatusBadRequest, "MISSING_PATH", "asset path is required")
		return
	}

	reader, info, err := s.Store.Get(relativePath)
	if err != nil {
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "asset not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentTypeFor(relativePath))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("handlers.assets: failed to stream %s: %v", relativePath, err)
	}
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
