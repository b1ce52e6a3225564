package services

import (
	"sync"

	"github.com/sheetlot/scanbackend/models"
)

type pairingSlot struct {
	entityID string
	seq      uint64
}

type sessionPair struct {
	face  *pairingSlot
	verso *pairingSlot
}

// PairingCoordinator tracks, per session, the most recently touched face and
// verso entity. State is transient: it exists to drive cross-synchronization
// and combined derivation within a session and is never persisted.
//
// Recency is ordered by a monotonic sequence number assigned under the lock,
// so two touches in the same instant still have a deterministic order.
type PairingCoordinator struct {
	mu       sync.Mutex
	seq      uint64
	sessions map[string]*sessionPair
}

func NewPairingCoordinator() *PairingCoordinator {
	return &PairingCoordinator{sessions: make(map[string]*sessionPair)}
}

// Touch records entityID as the session's current entity for side. Combined
// entities are not tracked.
func (pc *PairingCoordinator) Touch(sessionID string, side models.SheetSide, entityID string) {
	if side != models.SideFace && side != models.SideVerso {
		return
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	pair, ok := pc.sessions[sessionID]
	if !ok {
		pair = &sessionPair{}
		pc.sessions[sessionID] = pair
	}

	pc.seq++
	slot := &pairingSlot{entityID: entityID, seq: pc.seq}
	if side == models.SideFace {
		pair.face = slot
	} else {
		pair.verso = slot
	}
}

// ActivePair returns the session's current face and verso entity ids; either
// may be nil.
func (pc *PairingCoordinator) ActivePair(sessionID string) (faceID, versoID *string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pair, ok := pc.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if pair.face != nil {
		id := pair.face.entityID
		faceID = &id
	}
	if pair.verso != nil {
		id := pair.verso.entityID
		versoID = &id
	}
	return faceID, versoID
}

// Opposite returns the session's current entity on the side opposite to the
// given one, or nil.
func (pc *PairingCoordinator) Opposite(sessionID string, side models.SheetSide) *string {
	faceID, versoID := pc.ActivePair(sessionID)
	switch side {
	case models.SideFace:
		return versoID
	case models.SideVerso:
		return faceID
	}
	return nil
}

// MostRecent returns the side and entity touched last in the session,
// decided by sequence number.
func (pc *PairingCoordinator) MostRecent(sessionID string) (models.SheetSide, *string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pair, ok := pc.sessions[sessionID]
	if !ok {
		return "", nil
	}
	switch {
	case pair.face == nil && pair.verso == nil:
		return "", nil
	case pair.verso == nil || (pair.face != nil && pair.face.seq > pair.verso.seq):
		id := pair.face.entityID
		return models.SideFace, &id
	default:
		id := pair.verso.entityID
		return models.SideVerso, &id
	}
}

// ClearSession drops a session's transient pairing state.
func (pc *PairingCoordinator) ClearSession(sessionID string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	delete(pc.sessions, sessionID)
}
