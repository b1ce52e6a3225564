package models

// SheetSide identifies which side of a physical sheet a scan captures.
// Combined entities are derived compositions of a face/verso pair.
type SheetSide string

const (
	SideFace     SheetSide = "face"
	SideVerso    SheetSide = "verso"
	SideCombined SheetSide = "combined"
)

// ValidSide reports whether s is one of the known sheet sides.
func ValidSide(s SheetSide) bool {
	return s == SideFace || s == SideVerso || s == SideCombined
}

// ScanEntity represents a uniquely fingerprinted scan in the database using GORM.
// It corresponds to the 'scan_entities' table. The (fingerprint, side) pair is
// unique: re-uploading identical bytes for the same side updates LastSeenAt
// instead of creating a second row.
type ScanEntity struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Fingerprint string    `gorm:"not null;uniqueIndex:idx_fingerprint_side" json:"fingerprint"`
	Side        SheetSide `gorm:"not null;uniqueIndex:idx_fingerprint_side" json:"side"`

	OriginalName string `gorm:"not null" json:"original_name"`
	ByteSize     int64  `gorm:"not null" json:"byte_size"`
	PixelWidth   *int   `gorm:"" json:"pixel_width,omitempty"`
	PixelHeight  *int   `gorm:"" json:"pixel_height,omitempty"`

	// filesystem location of the stored original, relative to the media root
	StoredPath *string `gorm:"" json:"stored_path,omitempty"`

	FirstSeenAt int64 `gorm:"not null" json:"first_seen_at"` // Unix timestamp
	LastSeenAt  int64 `gorm:"not null" json:"last_seen_at"`  // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (ScanEntity) TableName() string {
	return "scan_entities"
}
