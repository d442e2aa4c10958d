package reorder

import (
	"errors"
	"slices"
	"testing"
)

func TestTaskDragStartUnknownTask(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	if err := c.DragStart("T9"); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if c.Session() != nil {
		t.Fatal("no session must be created for a bad payload")
	}
}

func TestTaskDragStartMarksNode(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	if err := c.DragStart("T1"); err != nil {
		t.Fatalf("DragStart() error = %v", err)
	}
	node, _, _ := surf.FindCard("T1")
	if !node.Dragging {
		t.Fatal("dragged card must be marked")
	}
	if err := c.DragStart("T2"); !errors.Is(err, ErrAlreadyDragging) {
		t.Fatalf("expected ErrAlreadyDragging, got %v", err)
	}
}

func TestTaskDragOverMovesVisualOnly(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T1")

	// Hover below every card in S1: the card moves to the visual tail.
	if err := c.DragOver(10, 20); err != nil {
		t.Fatalf("DragOver() error = %v", err)
	}
	col, _ := surf.Column("S1")
	if got := col.ChildIDs(); !slices.Equal(got, []string{"T2", "T3", "T1"}) {
		t.Fatalf("unexpected visual order %v", got)
	}
	// State is untouched until a drop is confirmed.
	if got := st.TaskOrderOf("S1"); !slices.Equal(got, []string{"T1", "T2", "T3"}) {
		t.Fatalf("state mutated during hover: %v", got)
	}
}

func TestTaskDragOverAcrossColumns(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T1")

	// T4's midpoint is y=2; hovering above it inserts before.
	if err := c.DragOver(30, 1); err != nil {
		t.Fatalf("DragOver() error = %v", err)
	}
	s1, _ := surf.Column("S1")
	s2, _ := surf.Column("S2")
	if got := s1.ChildIDs(); !slices.Equal(got, []string{"T2", "T3"}) {
		t.Fatalf("unexpected S1 visual order %v", got)
	}
	if got := s2.ChildIDs(); !slices.Equal(got, []string{"T1", "T4"}) {
		t.Fatalf("unexpected S2 visual order %v", got)
	}
}

func TestTaskDropSameSectionToEnd(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T1")
	_ = c.DragOver(10, 20)

	intent, ok, err := c.Drop(10, 20)
	if err != nil || !ok {
		t.Fatalf("Drop() = %v, %v", ok, err)
	}
	// Original index 0, insertion after T3 maps to raw index 3, adjusted
	// down for the not-yet-removed original slot.
	want := Intent{Kind: KindTask, EntityID: "T1", SourceID: "S1", TargetID: "S1", Index: 2}
	if intent != want {
		t.Fatalf("unexpected intent %+v, want %+v", intent, want)
	}
	if c.Session() != nil {
		t.Fatal("session must end on drop")
	}
}

func TestTaskDropCrossSectionAtTop(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T1")
	_ = c.DragOver(30, 1)

	intent, ok, err := c.Drop(30, 1)
	if err != nil || !ok {
		t.Fatalf("Drop() = %v, %v", ok, err)
	}
	want := Intent{Kind: KindTask, EntityID: "T1", SourceID: "S1", TargetID: "S2", Index: 0}
	if intent != want {
		t.Fatalf("unexpected intent %+v, want %+v", intent, want)
	}
}

func TestTaskDropIntoEmptySection(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T4")

	intent, ok, err := c.Drop(50, 10)
	if err != nil || !ok {
		t.Fatalf("Drop() = %v, %v", ok, err)
	}
	want := Intent{Kind: KindTask, EntityID: "T4", SourceID: "S2", TargetID: "S3", Index: 0}
	if intent != want {
		t.Fatalf("unexpected intent %+v, want %+v", intent, want)
	}
}

func TestTaskDropOnOwnSlotIsNoop(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T2")

	// Cursor still over T2's own slot: before T3, raw index 2, adjusted to
	// 1, equal to the original index.
	_, ok, err := c.Drop(10, 5)
	if err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if ok {
		t.Fatal("dropping a task onto its own position must not issue a move")
	}
}

func TestTaskDropOutsideBoardCancels(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T1")

	if _, ok, err := c.Drop(500, 500); ok || err != nil {
		t.Fatalf("Drop() outside board = %v, %v", ok, err)
	}
	if c.Session() != nil {
		t.Fatal("session must end after an abandoned drop")
	}
}

func TestTaskDropOnSentinelCancels(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)
	_ = c.DragStart("T1")
	if _, ok, _ := c.Drop(70, 5); ok {
		t.Fatal("dropping on the add-column sentinel must not issue a move")
	}
}

func TestMoveTaskRight(t *testing.T) {
	st, surf := testBoard(t)
	c := NewTaskController(st, surf, nil)

	intent, ok, err := c.MoveTaskRight("T1")
	if err != nil || !ok {
		t.Fatalf("MoveTaskRight() = %v, %v", ok, err)
	}
	want := Intent{Kind: KindTask, EntityID: "T1", SourceID: "S1", TargetID: "S2", Index: 0}
	if intent != want {
		t.Fatalf("unexpected intent %+v, want %+v", intent, want)
	}
}

func TestMoveTaskRightFromLastSection(t *testing.T) {
	st, surf := testBoard(t)
	if err := st.ApplyTaskMove("T4", "S2", "S3", 0); err != nil {
		t.Fatalf("seed move error = %v", err)
	}
	c := NewTaskController(st, surf, nil)
	if _, ok, err := c.MoveTaskRight("T4"); ok || err != nil {
		t.Fatalf("MoveTaskRight() from last section = %v, %v", ok, err)
	}
}
