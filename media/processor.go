package media

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/facette/natsort"
)

const (
	cropJpegQuality      = 90
	compositeJpegQuality = 85
)

// Processor handles crop generation and face/verso compositing. it relies on
// a Store implementation for saving the results.
type Processor struct {
	store Store
}

func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// Store exposes the underlying asset store.
func (p *Processor) Store() Store {
	return p.store
}

// GenerateCrops cuts the sheet scan at originalPath into one sub-image per
// grid cell and saves them under the crop asset dir keyed by entityID.
// boundary lists must be complete (edges included). returns relative crop
// paths in row-major order and the relative extraction dir.
func (p *Processor) GenerateCrops(originalPath, entityID string, layout GridLayout) ([]string, string, error) {
	img, err := imaging.Open(originalPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open scan %s: %w", originalPath, err)
	}
	bounds := img.Bounds()

	rowCuts := clampBoundaries(layout.RowBoundaries, bounds.Dy())
	colCuts := clampBoundaries(layout.ColBoundaries, bounds.Dx())
	if len(rowCuts) < 2 || len(colCuts) < 2 {
		return nil, "", fmt.Errorf("need at least 2 boundaries per axis, got %d rows / %d cols", len(rowCuts), len(colCuts))
	}

	var cropPaths []string
	for i := 0; i < len(rowCuts)-1; i++ {
		y0, y1 := rowCuts[i], rowCuts[i+1]
		if y1 <= y0 {
			continue
		}
		for j := 0; j < len(colCuts)-1; j++ {
			x0, x1 := colCuts[j], colCuts[j+1]
			if x1 <= x0 {
				continue
			}

			crop := imaging.Crop(img, image.Rect(x0, y0, x1, y1))

			var buf bytes.Buffer
			if err := imaging.Encode(&buf, crop, imaging.JPEG, imaging.JPEGQuality(cropJpegQuality)); err != nil {
				return nil, "", fmt.Errorf("failed to encode crop row %d col %d: %w", i, j, err)
			}
			relPath, err := p.store.Save(AssetTypeCrop, entityID, CropFileName(i, j), &buf)
			if err != nil {
				return nil, "", fmt.Errorf("failed to save crop row %d col %d: %w", i, j, err)
			}
			cropPaths = append(cropPaths, relPath)
		}
	}

	if len(cropPaths) == 0 {
		return nil, "", fmt.Errorf("boundary layout produced no cells for entity %s", entityID)
	}

	log.Printf("media.processor: generated %d crops for entity %s", len(cropPaths), entityID)
	return cropPaths, filepath.ToSlash(filepath.Dir(cropPaths[0])), nil
}

// PairCell is one grid position that exists in both the face and verso crop
// sets, with absolute paths to the two crop files.
type PairCell struct {
	Row, Col  int
	FacePath  string
	VersoPath string
}

// MatchPairCells intersects two crop path lists by their encoded (row, col)
// position, resolving relative paths against the store. paths that do not
// follow the crop naming convention are skipped. results are in natural
// name order, which is row-major.
func (p *Processor) MatchPairCells(faceCrops, versoCrops []string) ([]PairCell, error) {
	verso := map[[2]int]string{}
	for _, rel := range versoCrops {
		if row, col, ok := ParseCropName(filepath.Base(rel)); ok {
			full, err := p.store.GetFullPath(rel)
			if err != nil {
				return nil, err
			}
			verso[[2]int{row, col}] = full
		}
	}

	ordered := append([]string(nil), faceCrops...)
	natsort.Sort(ordered)

	var cells []PairCell
	for _, rel := range ordered {
		row, col, ok := ParseCropName(filepath.Base(rel))
		if !ok {
			continue
		}
		versoPath, ok := verso[[2]int{row, col}]
		if !ok {
			continue
		}
		facePath, err := p.store.GetFullPath(rel)
		if err != nil {
			return nil, err
		}
		cells = append(cells, PairCell{Row: row, Col: col, FacePath: facePath, VersoPath: versoPath})
	}
	return cells, nil
}

// ComposeCombined deterministically builds the combined artifact for a
// completed face/verso pair: each cell's face and verso crops are stitched
// side by side (face left), then all pairs are stacked top to bottom in
// row-major order. The returned JPEG bytes are what gets fingerprinted, so
// the same inputs must always produce the same bytes.
func (p *Processor) ComposeCombined(cells []PairCell) ([]byte, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no overlapping crop cells to compose")
	}

	var pairs []image.Image
	for _, cell := range cells {
		pair, err := stitchPair(cell.FacePath, cell.VersoPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stitch cell row %d col %d: %w", cell.Row, cell.Col, err)
		}
		pairs = append(pairs, pair)
	}

	sheet := stackVertically(pairs)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sheet, imaging.JPEG, imaging.JPEGQuality(compositeJpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode combined artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveCellComposites writes one combined_rowN_colM.jpg per cell plus the
// per-column lot images, all keyed by the combined entity id. returns the
// relative combined paths followed by the relative lot paths.
func (p *Processor) SaveCellComposites(combinedID string, cells []PairCell) ([]string, []string, error) {
	var combinedPaths []string
	byCol := map[int][]image.Image{}
	var cols []int

	for _, cell := range cells {
		pair, err := stitchPair(cell.FacePath, cell.VersoPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stitch cell row %d col %d: %w", cell.Row, cell.Col, err)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, pair, imaging.JPEG, imaging.JPEGQuality(compositeJpegQuality)); err != nil {
			return nil, nil, fmt.Errorf("failed to encode composite row %d col %d: %w", cell.Row, cell.Col, err)
		}
		relPath, err := p.store.Save(AssetTypeCombined, combinedID, CombinedFileName(cell.Row, cell.Col), &buf)
		if err != nil {
			return nil, nil, err
		}
		combinedPaths = append(combinedPaths, relPath)

		if _, seen := byCol[cell.Col]; !seen {
			cols = append(cols, cell.Col)
		}
		byCol[cell.Col] = append(byCol[cell.Col], pair)
	}

	var lotPaths []string
	for _, col := range cols {
		lot := stackVertically(byCol[col])
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, lot, imaging.JPEG, imaging.JPEGQuality(compositeJpegQuality)); err != nil {
			return nil, nil, fmt.Errorf("failed to encode lot for column %d: %w", col, err)
		}
		relPath, err := p.store.Save(AssetTypeLot, combinedID, LotFileName(col), &buf)
		if err != nil {
			return nil, nil, err
		}
		lotPaths = append(lotPaths, relPath)
	}

	log.Printf("media.processor: saved %d cell composites and %d lot images for %s", len(combinedPaths), len(lotPaths), combinedID)
	return combinedPaths, lotPaths, nil
}

// stitchPair joins a face and verso crop horizontally, face on the left,
// after resizing both to the smaller of the two heights.
func stitchPair(facePath, versoPath string) (image.Image, error) {
	faceImg, err := imaging.Open(facePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open face crop %s: %w", facePath, err)
	}
	versoImg, err := imaging.Open(versoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open verso crop %s: %w", versoPath, err)
	}

	targetHeight := minInt(faceImg.Bounds().Dy(), versoImg.Bounds().Dy())
	if targetHeight < 1 {
		return nil, fmt.Errorf("zero-height crop in pair %s / %s", facePath, versoPath)
	}
	faceResized := imaging.Resize(faceImg, 0, targetHeight, imaging.Lanczos)
	versoResized := imaging.Resize(versoImg, 0, targetHeight, imaging.Lanczos)

	width := faceResized.Bounds().Dx() + versoResized.Bounds().Dx()
	canvas := imaging.New(width, targetHeight, image.White)
	canvas = imaging.Paste(canvas, faceResized, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, versoResized, image.Pt(faceResized.Bounds().Dx(), 0))
	return canvas, nil
}

// stackVertically stacks images top to bottom after normalizing each to the
// widest member, preserving aspect ratio.
func stackVertically(imgs []image.Image) image.Image {
	maxWidth := 0
	for _, img := range imgs {
		maxWidth = maxInt(maxWidth, img.Bounds().Dx())
	}

	var resized []image.Image
	totalHeight := 0
	for _, img := range imgs {
		if img.Bounds().Dx() != maxWidth {
			img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
		}
		resized = append(resized, img)
		totalHeight += img.Bounds().Dy()
	}

	canvas := imaging.New(maxWidth, totalHeight, image.White)
	y := 0
	for _, img := range resized {
		canvas = imaging.Paste(canvas, img, image.Pt(0, y))
		y += img.Bounds().Dy()
	}
	return canvas
}

// clampBoundaries keeps sorted, in-range boundary positions only.
func clampBoundaries(boundaries []int, size int) []int {
	var valid []int
	for _, b := range boundaries {
		if b >= 0 && b <= size {
			valid = append(valid, b)
		}
	}
	return CleanBoundaries(valid, 1)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
