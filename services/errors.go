package services

import "errors"

var (
	// ErrUnknownSide rejects an ingest with a side outside face/verso.
	ErrUnknownSide = errors.New("unknown sheet side")

	// ErrGridUnresolved means an operation needed grid dimensions that no
	// resolution branch has produced yet.
	ErrGridUnresolved = errors.New("grid not resolved for entity")

	// ErrNoOverlappingCells means the face and verso crop sets share no grid
	// position, so nothing can be composed.
	ErrNoOverlappingCells = errors.New("face and verso crops have no overlapping cells")

	// ErrInvalidGrid rejects a grid override with non-positive dimensions.
	ErrInvalidGrid = errors.New("grid dimensions must be positive")
)
