package media

import (
	"reflect"
	"testing"
)

func TestCleanBoundaries(t *testing.T) {
	got := CleanBoundaries([]int{300, 100, 100, 105, 200}, 50)
	want := []int{100, 200, 300}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanBoundaries = %v, want %v", got, want)
	}
}

func TestCompleteBoundariesAddsEdges(t *testing.T) {
	got := CompleteBoundaries([]int{250, 500, 750}, 1000)
	want := []int{0, 250, 500, 750, 1000}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompleteBoundaries = %v, want %v", got, want)
	}
}

func TestCompleteBoundariesDropsEdgeHuggers(t *testing.T) {
	// 1000px: margin is 50, so 30 and 980 are noise
	got := CompleteBoundaries([]int{30, 500, 980}, 1000)
	want := []int{0, 500, 1000}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompleteBoundaries = %v, want %v", got, want)
	}
}

func TestCompleteBoundariesCollapsesCloseCuts(t *testing.T) {
	// cuts closer than size/10 = 100 merge into one
	got := CompleteBoundaries([]int{400, 450, 800}, 1000)
	want := []int{0, 400, 800, 1000}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompleteBoundaries = %v, want %v", got, want)
	}
}

func TestUniformBoundaries(t *testing.T) {
	got := UniformBoundaries(900, 3)
	want := []int{0, 300, 600, 900}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniformBoundaries = %v, want %v", got, want)
	}

	if got := UniformBoundaries(100, 0); got != nil {
		t.Errorf("UniformBoundaries with n=0 = %v, want nil", got)
	}
}

func TestCropNameRoundTrip(t *testing.T) {
	name := CropFileName(2, 5)
	if name != "crop_row2_col5.jpg" {
		t.Errorf("CropFileName = %q", name)
	}

	row, col, ok := ParseCropName(name)
	if !ok || row != 2 || col != 5 {
		t.Errorf("ParseCropName(%q) = (%d, %d, %v)", name, row, col, ok)
	}

	if _, _, ok := ParseCropName("banner.jpg"); ok {
		t.Error("ParseCropName accepted a non-crop name")
	}
}

func TestLotFileNameIsOneBased(t *testing.T) {
	if got := LotFileName(0); got != "lot_column_1.jpg" {
		t.Errorf("LotFileName(0) = %q, want lot_column_1.jpg", got)
	}
}
