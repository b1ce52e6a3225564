package media

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// helper to safely get a string tag (scanner make/model)
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val, err := tag.StringVal()
	if err != nil {
		return nil
	}
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ReadScanInfo extracts pixel dimensions and any scanner EXIF present in the
// uploaded bytes. EXIF is best effort; flatbed scans frequently carry none,
// so a missing or unparsable block is not an error.
func ReadScanInfo(data []byte) (ScanInfo, error) {
	info := ScanInfo{}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info, err
	}
	info.Width = &cfg.Width
	info.Height = &cfg.Height

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil || exifData == nil {
		return info, nil
	}

	info.ScannerMake = getString(exifData, exif.Make)
	info.ScannerName = getString(exifData, exif.Model)

	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		info.ScannedAt = &ts
	}
	return info, nil
}
