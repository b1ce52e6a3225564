package media

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
)

// DetectionError is returned when the segmentation collaborator cannot
// produce a grid for an image (unreadable bytes or ambiguous layout).
// Callers treat it as "no result" rather than retrying.
type DetectionError struct {
	Reason string
	Err    error
}

func (e *DetectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grid detection failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("grid detection failed: %s", e.Reason)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// ContourGridDetector finds row boundaries by contour analysis: threshold
// the sheet, take the bounding boxes of card-sized contours, and use their
// top/bottom edges as horizontal cut candidates. Columns have no detection
// logic; a sheet without vertical cuts yields a single column.
type ContourGridDetector struct {
	Enabled bool

	// contours smaller than this fraction of the image area are noise
	MinAreaFrac float64
	BlurKernel  int
}

func NewContourGridDetector() *ContourGridDetector {
	return &ContourGridDetector{
		Enabled:     true,
		MinAreaFrac: 0.03,
		BlurKernel:  7,
	}
}

// DetectGrid resolves the grid layout of the sheet image at path.
func (d *ContourGridDetector) DetectGrid(path string) (GridLayout, error) {
	if !d.Enabled {
		return GridLayout{}, &DetectionError{Reason: "detector disabled"}
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return GridLayout{}, &DetectionError{Reason: "could not read image"}
	}
	defer img.Close()

	width := img.Cols()
	height := img.Rows()

	internalRows := d.detectRowCuts(img)
	rowBoundaries := CompleteBoundaries(internalRows, height)
	colBoundaries := CompleteBoundaries(nil, width)

	layout := GridLayout{
		Rows:          len(rowBoundaries) - 1,
		Cols:          len(colBoundaries) - 1,
		RowBoundaries: rowBoundaries,
		ColBoundaries: colBoundaries,
	}
	if layout.Rows < 1 || layout.Cols < 1 {
		return GridLayout{}, &DetectionError{Reason: "ambiguous layout"}
	}

	log.Printf("media.detector: %s -> %dx%d (row cuts %v)", path, layout.Rows, layout.Cols, internalRows)
	return layout, nil
}

// detectRowCuts returns candidate horizontal cut positions: the top and
// bottom edges of every card-sized contour bounding box.
func (d *ContourGridDetector) detectRowCuts(img gocv.Mat) []int {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(d.BlurKernel, d.BlurKernel), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(blurred, &thresh, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	imgArea := float64(img.Rows() * img.Cols())
	var cuts []int
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) <= imgArea*d.MinAreaFrac {
			continue
		}
		rect := gocv.BoundingRect(contour)
		cuts = append(cuts, rect.Min.Y, rect.Max.Y)
	}
	return cuts
}
