package reorder

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/soltrom/flytt/internal/geometry"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

// TaskController owns the drag lifecycle for task cards: start, hover
// repositioning for live feedback, and drop resolution into a move intent.
type TaskController struct {
	store *store.Store
	surf  *surface.Surface
	log   *log.Logger
	sess  *Session
}

// NewTaskController constructs a task controller over the shared store and
// surface.
func NewTaskController(st *store.Store, surf *surface.Surface, logger *log.Logger) *TaskController {
	if logger == nil {
		logger = log.Default()
	}
	return &TaskController{store: st, surf: surf, log: logger}
}

// Session exposes the active session, if any.
func (c *TaskController) Session() *Session { return c.sess }

// DragStart begins a session for a task. An id that resolves to nothing is
// a malformed payload: logged and dropped without touching state.
func (c *TaskController) DragStart(taskID string) error {
	if c.sess.Active() {
		return ErrAlreadyDragging
	}
	task, ok := c.store.Task(taskID)
	if !ok {
		c.log.Warn("ignoring drag start for unknown task", "task", taskID)
		return fmt.Errorf("task %s: %w", taskID, ErrBadPayload)
	}
	c.sess = Begin(KindTask, taskID, task.SectionID)
	if node, _, found := c.surf.FindCard(taskID); found {
		node.Dragging = true
	}
	return nil
}

// DragOver repositions the dragged card visually inside the column under
// the cursor. Nothing is persisted; this is the live feedback pass.
func (c *TaskController) DragOver(x, y int) error {
	if !c.sess.Active() {
		return ErrNotDragging
	}
	col, ok := c.surf.ColumnAt(x, y)
	if !ok || col.Kind == surface.KindSentinel {
		return nil
	}
	beforeID, _ := geometry.InsertionPoint(y, col.Candidates(true, c.sess.EntityID))

	node, from, found := c.surf.FindCard(c.sess.EntityID)
	if !found {
		c.log.Warn("dragged card has no visual node", "task", c.sess.EntityID)
		return nil
	}
	if from == col {
		col.MoveBefore(node.ID, beforeID)
		return nil
	}
	from.RemoveChild(node.ID)
	col.InsertBefore(node, beforeID)
	return nil
}

// Drop resolves the final destination and index and returns the move
// intent. ok is false when the drop was a no-op or landed outside any valid
// target; the session ends either way and the caller runs the guard.
func (c *TaskController) Drop(x, y int) (Intent, bool, error) {
	if !c.sess.Active() {
		return Intent{}, false, ErrNotDragging
	}
	sess := c.sess
	defer c.finish()

	col, ok := c.surf.ColumnAt(x, y)
	if !ok || col.Kind == surface.KindSentinel {
		sess.Cancel()
		return Intent{}, false, nil
	}
	sec, found := c.store.Section(col.ID)
	if !found {
		c.log.Warn("drop target column has no section in state", "section", col.ID)
		sess.Cancel()
		return Intent{}, false, nil
	}

	// Resolve the insertion point among siblings excluding the dragged
	// card, then map it onto the authoritative task order. That order still
	// contains the dragged task at its original slot for same-section
	// moves, hence the decrement below.
	beforeID, hasBefore := geometry.InsertionPoint(y, col.Candidates(true, sess.EntityID))
	index := len(sec.TaskIDs)
	if hasBefore {
		if stateIdx := sec.TaskIndex(beforeID); stateIdx >= 0 {
			index = stateIdx
		} else if visualIdx := col.ChildIndex(beforeID); visualIdx >= 0 {
			index = visualIdx
		}
	}
	if col.ID == sess.SourceID {
		origIdx := sec.TaskIndex(sess.EntityID)
		if origIdx >= 0 && origIdx < index {
			index--
		}
		if origIdx == index {
			// Dropped back onto its own slot: idempotent, no backend call.
			_ = sess.Drop()
			return Intent{}, false, nil
		}
	}

	if err := sess.Drop(); err != nil {
		return Intent{}, false, err
	}
	return Intent{
		Kind:     KindTask,
		EntityID: sess.EntityID,
		SourceID: sess.SourceID,
		TargetID: col.ID,
		Index:    index,
	}, true, nil
}

// Cancel abandons the active session.
func (c *TaskController) Cancel() {
	if c.sess.Active() {
		c.sess.Cancel()
	}
	c.finish()
}

// MoveTaskRight is the keyboard convenience path: move the task to index 0
// of the section immediately following its current one. ok is false when
// the task is already in the last section.
func (c *TaskController) MoveTaskRight(taskID string) (Intent, bool, error) {
	task, found := c.store.Task(taskID)
	if !found {
		return Intent{}, false, fmt.Errorf("task %s: %w", taskID, ErrBadPayload)
	}
	next, ok := c.store.Board().SectionAfter(task.SectionID)
	if !ok {
		return Intent{}, false, nil
	}
	return Intent{
		Kind:     KindTask,
		EntityID: taskID,
		SourceID: task.SectionID,
		TargetID: next,
		Index:    0,
	}, true, nil
}

// finish clears the dragging mark and resets to idle.
func (c *TaskController) finish() {
	if c.sess == nil {
		return
	}
	for _, node := range c.surf.NodesByID(c.sess.EntityID) {
		node.Dragging = false
	}
	c.sess = nil
}
