package media

type AssetType string

const (
	AssetTypeUpload   AssetType = "upload"
	AssetTypeCrop     AssetType = "crop"
	AssetTypeCombined AssetType = "combined"
	AssetTypeLot      AssetType = "lot"
	AssetTypeUnknown  AssetType = "unknown"
)

// GridLayout describes the row/column subdivision of a sheet scan. Boundary
// lists are complete: they always include the image edges (0 and the image
// extent), so Rows == len(RowBoundaries)-1 and likewise for columns.
type GridLayout struct {
	Rows          int   `json:"rows"`
	Cols          int   `json:"cols"`
	RowBoundaries []int `json:"row_boundaries"`
	ColBoundaries []int `json:"col_boundaries"`
}

// ScanInfo carries scanner EXIF and dimension information captured at ingest.
type ScanInfo struct {
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	ScannerMake *string `json:"scanner_make,omitempty"`
	ScannerName *string `json:"scanner_model,omitempty"`
	ScannedAt   *int64  `json:"scanned_at,omitempty"`
}
