package media

import (
	"fmt"
	"sort"
)

// CleanBoundaries sorts, deduplicates, and drops boundaries closer than
// minDistance to their predecessor.
func CleanBoundaries(boundaries []int, minDistance int) []int {
	if len(boundaries) == 0 {
		return nil
	}
	seen := map[int]bool{}
	var uniq []int
	for _, b := range boundaries {
		if !seen[b] {
			seen[b] = true
			uniq = append(uniq, b)
		}
	}
	sort.Ints(uniq)

	cleaned := []int{uniq[0]}
	for _, b := range uniq[1:] {
		if b-cleaned[len(cleaned)-1] >= minDistance {
			cleaned = append(cleaned, b)
		}
	}
	return cleaned
}

// CompleteBoundaries turns internal cut positions into a complete boundary
// list spanning 0..size. Internal positions within 5% of either edge are
// discarded, and cuts closer than size/10 collapse into one.
func CompleteBoundaries(internal []int, size int) []int {
	margin := size / 20
	var kept []int
	for _, b := range internal {
		if b > margin && b < size-margin {
			kept = append(kept, b)
		}
	}
	kept = CleanBoundaries(kept, size/10)

	complete := append([]int{0}, kept...)
	if complete[len(complete)-1] != size {
		complete = append(complete, size)
	}
	return complete
}

// UniformBoundaries builds a complete boundary list that divides size into n
// equal cells. Used when a user supplied grid dimensions without cut
// positions.
func UniformBoundaries(size, n int) []int {
	if n < 1 || size < 1 {
		return nil
	}
	boundaries := make([]int, 0, n+1)
	for i := 0; i <= n; i++ {
		boundaries = append(boundaries, i*size/n)
	}
	return boundaries
}

// CropFileName names a crop for one grid cell. The row/column encoding is
// load-bearing: compositing derives the actual grid back from these names.
func CropFileName(row, col int) string {
	return fmt.Sprintf("crop_row%d_col%d.jpg", row, col)
}

// CombinedFileName names the face+verso composite for one grid cell.
func CombinedFileName(row, col int) string {
	return fmt.Sprintf("combined_row%d_col%d.jpg", row, col)
}

// LotFileName names the per-column lot composite. Columns are 1-based in
// lot names.
func LotFileName(col int) string {
	return fmt.Sprintf("lot_column_%d.jpg", col+1)
}

// ParseCropName extracts the (row, col) cell position from a crop file name
// produced by CropFileName. ok is false for anything else.
func ParseCropName(name string) (row, col int, ok bool) {
	n, err := fmt.Sscanf(name, "crop_row%d_col%d.jpg", &row, &col)
	if err != nil || n != 2 {
		return 0, 0, false
	}
	return row, col, true
}
