// Package gesture makes touch-based dragging behaviorally identical to
// pointer dragging. A Recognizer consumes raw touch samples (start, move,
// end, cancel) and drives the same reorder controllers the pointer path
// drives, so both input modalities share one code path and produce the
// same move intents.
package gesture

import (
	"github.com/charmbracelet/log"

	"github.com/soltrom/flytt/internal/geometry"
	"github.com/soltrom/flytt/internal/reorder"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

// HandleFunc reports whether a point falls on a node's drag handle. A touch
// anywhere else on the node scrolls instead of dragging.
type HandleFunc func(n *surface.Node, x, y int) bool

// TopRowHandle is the default handle region: the first rendered row of the
// node, which is the column header for columns and the title row for cards.
func TopRowHandle(n *surface.Node, x, y int) bool {
	return n.Rect.Contains(x, y) && y == n.Rect.Y
}

// Recognizer translates a touch sample stream into drag lifecycle calls.
type Recognizer struct {
	tasks    *reorder.TaskController
	sections *reorder.SectionController
	store    *store.Store
	surf     *surface.Surface
	log      *log.Logger

	handle HandleFunc
	active reorder.Kind
	inDrag bool
}

// Option tunes a recognizer.
type Option func(*Recognizer)

// WithHandleFunc overrides the drag handle region test.
func WithHandleFunc(fn HandleFunc) Option {
	return func(r *Recognizer) {
		if fn != nil {
			r.handle = fn
		}
	}
}

// New constructs a recognizer over the shared controllers and surface.
func New(tasks *reorder.TaskController, sections *reorder.SectionController, st *store.Store, surf *surface.Surface, logger *log.Logger, opts ...Option) *Recognizer {
	if logger == nil {
		logger = log.Default()
	}
	r := &Recognizer{
		tasks:    tasks,
		sections: sections,
		store:    st,
		surf:     surf,
		log:      logger,
		handle:   TopRowHandle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active reports whether a touch drag session is in progress.
func (r *Recognizer) Active() bool { return r.inDrag }

// ScrollSuppressed reports whether the host view must swallow scroll
// behavior for the current touch sequence.
func (r *Recognizer) ScrollSuppressed() bool { return r.inDrag }

// TouchStart begins a drag session when the touch lands on a card's or
// column's drag handle. It reports whether a session started; a touch
// anywhere else is left to the host view.
func (r *Recognizer) TouchStart(x, y int) (bool, error) {
	if r.inDrag {
		return false, reorder.ErrAlreadyDragging
	}
	if card, _, ok := r.surf.CardAt(x, y); ok && card != nil && card.Kind == surface.KindCard && r.handle(card, x, y) {
		if err := r.tasks.DragStart(card.ID); err != nil {
			return false, err
		}
		r.active = reorder.KindTask
		r.inDrag = true
		return true, nil
	}
	if col, ok := r.surf.ColumnAt(x, y); ok && col.Kind == surface.KindColumn && r.handle(col, x, y) {
		if err := r.sections.DragStart(col.ID); err != nil {
			return false, err
		}
		r.active = reorder.KindSection
		r.inDrag = true
		return true, nil
	}
	return false, nil
}

// TouchMove forwards a movement sample to the active controller as a
// drag-over on whatever lies under the touch point. Without an active
// session the sample is ignored and scrolling proceeds normally.
func (r *Recognizer) TouchMove(x, y int) error {
	if !r.inDrag {
		return nil
	}
	if r.active == reorder.KindTask {
		return r.tasks.DragOver(x, y)
	}
	return r.sections.DragOver(x)
}

// TouchEnd resolves the drop under the final touch point and ends the
// session. ok is false when the target position is unchanged or the drop
// is invalid; no state was mutated either way.
func (r *Recognizer) TouchEnd(x, y int) (reorder.Intent, bool, error) {
	if !r.inDrag {
		return reorder.Intent{}, false, reorder.ErrNotDragging
	}
	r.inDrag = false
	if r.active == reorder.KindTask {
		return r.tasks.Drop(x, y)
	}
	return r.endSectionDrag(x)
}

// TouchCancel abandons the active session without producing an intent.
func (r *Recognizer) TouchCancel() {
	if !r.inDrag {
		return
	}
	r.inDrag = false
	if r.active == reorder.KindTask {
		r.tasks.Cancel()
		return
	}
	r.sections.Cancel()
}

// endSectionDrag computes the final column index in terms of the full
// authoritative section order rather than the visually filtered sibling
// list. The insertion scan excludes the dragged column, so when the
// after-element sits past the column's original position the index is
// pulled back by one to land on the post-removal slot.
func (r *Recognizer) endSectionDrag(x int) (reorder.Intent, bool, error) {
	sess := r.sections.Session()
	if !sess.Active() {
		return reorder.Intent{}, false, reorder.ErrNotDragging
	}
	entityID := sess.EntityID
	sourceID := sess.SourceID

	board := r.store.Board()
	origIdx := board.SectionIndex(entityID)
	if origIdx < 0 {
		r.log.Warn("dragged column missing from board order", "section", entityID)
		r.sections.Cancel()
		return reorder.Intent{}, false, nil
	}

	beforeID, _ := geometry.InsertionPoint(x, r.surf.Root().Candidates(false, entityID))
	idx := len(board.SectionOrder) - 1
	if beforeID != "" {
		idx = board.SectionIndex(beforeID)
		if idx < 0 {
			r.log.Warn("insertion target missing from board order", "section", beforeID)
			r.sections.Cancel()
			return reorder.Intent{}, false, nil
		}
		if origIdx < idx {
			idx--
		}
	}
	r.sections.Cancel()

	if idx == origIdx {
		return reorder.Intent{}, false, nil
	}
	return reorder.Intent{
		Kind:     reorder.KindSection,
		EntityID: entityID,
		SourceID: sourceID,
		Index:    idx,
	}, true, nil
}
