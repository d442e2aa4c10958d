// Package reorder is the drag-and-drop engine: it turns drag lifecycle
// signals into visual repositioning on the surface and, on drop, into move
// intents for the orchestrator. It never talks to the backend and never
// creates or destroys entities.
package reorder

import (
	"errors"
	"time"
)

// Kind identifies what a drag session is moving.
type Kind string

const (
	KindTask    Kind = "task"
	KindSection Kind = "section"
)

// State is the per-session lifecycle: idle → dragging → (hover
// repositioning)* → dropped | cancelled.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateDropped
	StateCancelled
)

var (
	ErrAlreadyDragging = errors.New("drag session already active")
	ErrNotDragging     = errors.New("no active drag session")
	ErrBadPayload      = errors.New("malformed drag payload")
)

// Intent is the pure outcome of a completed drop: one move command for the
// orchestrator, dispatched identically by pointer and touch input.
type Intent struct {
	Kind     Kind
	EntityID string
	// SourceID is the originating container: the source section for tasks,
	// the board for sections.
	SourceID string
	// TargetID is the destination section for tasks; empty for sections.
	TargetID string
	Index    int
}

// Session is one ephemeral drag from gesture start to drop or cancel.
type Session struct {
	Kind     Kind
	EntityID string
	SourceID string

	state State

	// Hover bookkeeping for the section controller's throttle, re-entrancy
	// guard, and minimum-distance policy.
	lastRecompute time.Time
	lastCoord     int
	hasCoord      bool
	recomputing   bool
}

// Begin starts a session.
func Begin(kind Kind, entityID, sourceID string) *Session {
	return &Session{
		Kind:     kind,
		EntityID: entityID,
		SourceID: sourceID,
		state:    StateDragging,
	}
}

// Active reports whether the session is still dragging.
func (s *Session) Active() bool {
	return s != nil && s.state == StateDragging
}

// Drop marks the session dropped.
func (s *Session) Drop() error {
	if !s.Active() {
		return ErrNotDragging
	}
	s.state = StateDropped
	return nil
}

// Cancel abandons the session; no state was committed, so the dragged
// element falls back to its pre-drag position when the guard re-syncs.
func (s *Session) Cancel() {
	if s.Active() {
		s.state = StateCancelled
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	if s == nil {
		return StateIdle
	}
	return s.state
}

// shouldRecompute applies the hover throttle: at most one recomputation per
// interval, and none while a previous one for this session is in flight.
func (s *Session) shouldRecompute(now time.Time, interval time.Duration) bool {
	if s.recomputing {
		return false
	}
	if !s.lastRecompute.IsZero() && now.Sub(s.lastRecompute) < interval {
		return false
	}
	s.lastRecompute = now
	return true
}

// movedFar reports whether the cursor travelled at least minDistance since
// the last committed reposition, and records the coordinate when it did.
func (s *Session) movedFar(coord, minDistance int) bool {
	if !s.hasCoord {
		s.lastCoord = coord
		s.hasCoord = true
		return true
	}
	d := coord - s.lastCoord
	if d < 0 {
		d = -d
	}
	if d < minDistance {
		return false
	}
	s.lastCoord = coord
	return true
}
