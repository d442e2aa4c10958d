package reorder

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soltrom/flytt/internal/geometry"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

// Hover recomputation defaults for section drags. Recomputing the insertion
// point on every motion sample churns the surface during fast pointer
// movement, so hovers are rate-limited and repositions need a minimum
// travel distance.
const (
	DefaultHoverInterval   = 100 * time.Millisecond
	DefaultMinDragDistance = 2
)

// SectionController owns the drag lifecycle for columns.
type SectionController struct {
	store *store.Store
	surf  *surface.Surface
	log   *log.Logger
	sess  *Session

	hoverInterval   time.Duration
	minDragDistance int
	now             func() time.Time
}

// SectionControllerOption tunes a controller.
type SectionControllerOption func(*SectionController)

// WithHoverInterval overrides the hover throttle interval.
func WithHoverInterval(d time.Duration) SectionControllerOption {
	return func(c *SectionController) {
		if d > 0 {
			c.hoverInterval = d
		}
	}
}

// WithMinDragDistance overrides the minimum cursor travel before a
// reposition is committed.
func WithMinDragDistance(cells int) SectionControllerOption {
	return func(c *SectionController) {
		if cells >= 0 {
			c.minDragDistance = cells
		}
	}
}

// WithClock injects a clock for deterministic throttle tests.
func WithClock(now func() time.Time) SectionControllerOption {
	return func(c *SectionController) {
		if now != nil {
			c.now = now
		}
	}
}

// NewSectionController constructs a section controller.
func NewSectionController(st *store.Store, surf *surface.Surface, logger *log.Logger, opts ...SectionControllerOption) *SectionController {
	if logger == nil {
		logger = log.Default()
	}
	c := &SectionController{
		store:           st,
		surf:            surf,
		log:             logger,
		hoverInterval:   DefaultHoverInterval,
		minDragDistance: DefaultMinDragDistance,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session exposes the active session, if any.
func (c *SectionController) Session() *Session { return c.sess }

// DragStart begins a session for a column.
func (c *SectionController) DragStart(sectionID string) error {
	if c.sess.Active() {
		return ErrAlreadyDragging
	}
	if _, ok := c.store.Section(sectionID); !ok {
		c.log.Warn("ignoring drag start for unknown section", "section", sectionID)
		return fmt.Errorf("section %s: %w", sectionID, ErrBadPayload)
	}
	c.sess = Begin(KindSection, sectionID, c.store.Board().ID)
	if node, ok := c.surf.Column(sectionID); ok {
		node.Dragging = true
	}
	return nil
}

// DragOver recomputes the candidate insertion point for the dragged column
// and repositions it visually. Recomputation is throttled, guarded against
// re-entry, and a reposition is committed only when the insertion point
// actually changed and the cursor travelled far enough.
func (c *SectionController) DragOver(x int) error {
	if !c.sess.Active() {
		return ErrNotDragging
	}
	sess := c.sess
	if !sess.shouldRecompute(c.now(), c.hoverInterval) {
		return nil
	}
	sess.recomputing = true
	defer func() { sess.recomputing = false }()

	root := c.surf.Root()
	beforeID, _ := geometry.InsertionPoint(x, root.Candidates(false, sess.EntityID))

	current := root.ChildIndex(sess.EntityID)
	target := len(root.ChildIDs()) - 1
	if beforeID != "" {
		// Index the insertion point would land the column at, with the
		// dragged column itself out of the list.
		target = 0
		for _, id := range root.ChildIDs() {
			if id == beforeID {
				break
			}
			if id != sess.EntityID {
				target++
			}
		}
	}
	if current == target || current < 0 {
		return nil
	}
	if !sess.movedFar(x, c.minDragDistance) {
		return nil
	}
	root.MoveBefore(sess.EntityID, beforeID)
	return nil
}

// Drop resolves the final index of the dragged column among non-sentinel
// columns. ok is false for the no-op fast path (target equals the current
// index in the board's section order) and for drops outside the board.
func (c *SectionController) Drop() (Intent, bool, error) {
	if !c.sess.Active() {
		return Intent{}, false, ErrNotDragging
	}
	sess := c.sess
	defer c.finish()

	visualIdx := c.surf.Root().ChildIndex(sess.EntityID)
	if visualIdx < 0 {
		c.log.Warn("dropped column missing from surface", "section", sess.EntityID)
		sess.Cancel()
		return Intent{}, false, nil
	}
	if visualIdx == c.store.Board().SectionIndex(sess.EntityID) {
		_ = sess.Drop()
		return Intent{}, false, nil
	}
	if err := sess.Drop(); err != nil {
		return Intent{}, false, err
	}
	return Intent{
		Kind:     KindSection,
		EntityID: sess.EntityID,
		SourceID: sess.SourceID,
		Index:    visualIdx,
	}, true, nil
}

// Cancel abandons the active session.
func (c *SectionController) Cancel() {
	if c.sess.Active() {
		c.sess.Cancel()
	}
	c.finish()
}

func (c *SectionController) finish() {
	if c.sess == nil {
		return
	}
	for _, node := range c.surf.NodesByID(c.sess.EntityID) {
		node.Dragging = false
	}
	c.sess = nil
}
