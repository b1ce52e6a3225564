package services

import (
	"testing"

	"github.com/sheetlot/scanbackend/models"
)

func TestActivePairTracksLatestPerSide(t *testing.T) {
	pc := NewPairingCoordinator()

	pc.Touch("s1", models.SideFace, "f1")
	pc.Touch("s1", models.SideVerso, "v1")
	pc.Touch("s1", models.SideFace, "f2")

	faceID, versoID := pc.ActivePair("s1")
	if faceID == nil || *faceID != "f2" {
		t.Errorf("face = %v, want \"f2\"", faceID)
	}
	if versoID == nil || *versoID != "v1" {
		t.Errorf("verso = %v, want \"v1\"", versoID)
	}
}

func TestOppositeReturnsOtherSide(t *testing.T) {
	pc := NewPairingCoordinator()
	pc.Touch("s1", models.SideFace, "f1")

	if got := pc.Opposite("s1", models.SideVerso); got == nil || *got != "f1" {
		t.Errorf("Opposite(verso) = %v, want \"f1\"", got)
	}
	if got := pc.Opposite("s1", models.SideFace); got != nil {
		t.Errorf("Opposite(face) = %v, want nil with no verso touched", got)
	}
}

func TestMostRecentUsesSequenceOrder(t *testing.T) {
	pc := NewPairingCoordinator()

	pc.Touch("s1", models.SideFace, "f1")
	pc.Touch("s1", models.SideVerso, "v1")

	side, id := pc.MostRecent("s1")
	if side != models.SideVerso || id == nil || *id != "v1" {
		t.Errorf("MostRecent = (%q, %v), want (verso, \"v1\")", side, id)
	}

	pc.Touch("s1", models.SideFace, "f2")
	side, id = pc.MostRecent("s1")
	if side != models.SideFace || id == nil || *id != "f2" {
		t.Errorf("MostRecent after face touch = (%q, %v), want (face, \"f2\")", side, id)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	pc := NewPairingCoordinator()

	pc.Touch("s1", models.SideFace, "f1")
	pc.Touch("s2", models.SideFace, "other")

	faceID, _ := pc.ActivePair("s1")
	if faceID == nil || *faceID != "f1" {
		t.Errorf("s1 face = %v, want \"f1\"", faceID)
	}

	pc.ClearSession("s1")
	faceID, versoID := pc.ActivePair("s1")
	if faceID != nil || versoID != nil {
		t.Errorf("cleared session still has pair (%v, %v)", faceID, versoID)
	}
	if got, _ := pc.ActivePair("s2"); got == nil || *got != "other" {
		t.Errorf("s2 face = %v, want \"other\" untouched by clearing s1", got)
	}
}

func TestTouchIgnoresCombinedSide(t *testing.T) {
	pc := NewPairingCoordinator()
	pc.Touch("s1", models.SideCombined, "c1")

	faceID, versoID := pc.ActivePair("s1")
	if faceID != nil || versoID != nil {
		t.Errorf("combined touch registered a pair (%v, %v)", faceID, versoID)
	}
}
