package domain

import (
	"slices"
	"testing"
	"time"
)

func TestNewBoardValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewBoard("", "ok", now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewBoard("b1", "   ", now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestBoardAppendSection(t *testing.T) {
	now := time.Now()
	b, err := NewBoard("b1", "Work", now)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	if err := b.AppendSection("s1", now); err != nil {
		t.Fatalf("AppendSection() error = %v", err)
	}
	if err := b.AppendSection("s1", now); err != ErrDuplicateEntry {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if got := b.SectionIndex("s1"); got != 0 {
		t.Fatalf("unexpected section index %d", got)
	}
}

func TestBoardMoveSectionToFront(t *testing.T) {
	now := time.Now()
	b, _ := NewBoard("b1", "Work", now)
	for _, id := range []string{"S1", "S2", "S3"} {
		if err := b.AppendSection(id, now); err != nil {
			t.Fatalf("AppendSection(%s) error = %v", id, err)
		}
	}
	if err := b.MoveSection("S3", 0, now); err != nil {
		t.Fatalf("MoveSection() error = %v", err)
	}
	want := []string{"S3", "S1", "S2"}
	if !slices.Equal(b.SectionOrder, want) {
		t.Fatalf("unexpected order %v, want %v", b.SectionOrder, want)
	}
}

func TestBoardMoveSectionErrors(t *testing.T) {
	now := time.Now()
	b, _ := NewBoard("b1", "Work", now)
	_ = b.AppendSection("S1", now)
	if err := b.MoveSection("S9", 0, now); err != ErrUnknownSection {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
	if err := b.MoveSection("S1", -1, now); err != ErrInvalidIndex {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestBoardSectionAfter(t *testing.T) {
	now := time.Now()
	b, _ := NewBoard("b1", "Work", now)
	_ = b.AppendSection("S1", now)
	_ = b.AppendSection("S2", now)
	next, ok := b.SectionAfter("S1")
	if !ok || next != "S2" {
		t.Fatalf("SectionAfter(S1) = %q, %v", next, ok)
	}
	if _, ok := b.SectionAfter("S2"); ok {
		t.Fatal("expected no section after the last one")
	}
	if _, ok := b.SectionAfter("S9"); ok {
		t.Fatal("expected no section after an unknown id")
	}
}

func TestBoardReplaceSectionOrder(t *testing.T) {
	now := time.Now()
	b, _ := NewBoard("b1", "Work", now)
	_ = b.AppendSection("S1", now)
	_ = b.AppendSection("S2", now)

	if err := b.ReplaceSectionOrder([]string{"S2", "S1"}, now); err != nil {
		t.Fatalf("ReplaceSectionOrder() error = %v", err)
	}
	if !slices.Equal(b.SectionOrder, []string{"S2", "S1"}) {
		t.Fatalf("unexpected order %v", b.SectionOrder)
	}
	if err := b.ReplaceSectionOrder([]string{"S2"}, now); err != ErrOrderDiverged {
		t.Fatalf("expected ErrOrderDiverged, got %v", err)
	}
	if err := b.ReplaceSectionOrder([]string{"S2", "S2"}, now); err != ErrDuplicateEntry {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if err := b.ReplaceSectionOrder([]string{"S2", "S9"}, now); err != ErrOrderDiverged {
		t.Fatalf("expected ErrOrderDiverged, got %v", err)
	}
}

func TestNewSectionValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewSection("", "b1", "To Do", now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewSection("s1", "b1", " ", now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestSectionInsertRemove(t *testing.T) {
	now := time.Now()
	s, err := NewSection("s1", "b1", "To Do", now)
	if err != nil {
		t.Fatalf("NewSection() error = %v", err)
	}
	if err := s.InsertTask("T1", 0, now); err != nil {
		t.Fatalf("InsertTask() error = %v", err)
	}
	if err := s.InsertTask("T2", 99, now); err != nil {
		t.Fatalf("InsertTask() past end error = %v", err)
	}
	if !slices.Equal(s.TaskIDs, []string{"T1", "T2"}) {
		t.Fatalf("unexpected order %v", s.TaskIDs)
	}
	if err := s.InsertTask("T1", 0, now); err != ErrDuplicateEntry {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if err := s.RemoveTask("T9", now); err != ErrUnknownTask {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
	if err := s.RemoveTask("T1", now); err != nil {
		t.Fatalf("RemoveTask() error = %v", err)
	}
	if !slices.Equal(s.TaskIDs, []string{"T2"}) {
		t.Fatalf("unexpected order %v", s.TaskIDs)
	}
}

func TestSectionMoveTaskWithin(t *testing.T) {
	now := time.Now()
	s, _ := NewSection("S1", "b1", "To Do", now)
	for i, id := range []string{"T1", "T2", "T3"} {
		if err := s.InsertTask(id, i, now); err != nil {
			t.Fatalf("InsertTask(%s) error = %v", id, err)
		}
	}
	// T1 from index 0 to index 2 (already removal-adjusted).
	if err := s.MoveTaskWithin("T1", 2, now); err != nil {
		t.Fatalf("MoveTaskWithin() error = %v", err)
	}
	want := []string{"T2", "T3", "T1"}
	if !slices.Equal(s.TaskIDs, want) {
		t.Fatalf("unexpected order %v, want %v", s.TaskIDs, want)
	}
}

func TestMoveTaskBetweenSections(t *testing.T) {
	now := time.Now()
	a, _ := NewSection("A", "b1", "To Do", now)
	b, _ := NewSection("B", "b1", "Doing", now)
	_ = a.InsertTask("T1", 0, now)
	_ = a.InsertTask("T2", 1, now)
	_ = b.InsertTask("T3", 0, now)
	task, err := NewTask(TaskInput{ID: "T1", BoardID: "b1", SectionID: "A", Title: "first"}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}

	if err := MoveTaskBetween(&a, &b, &task, 0, now); err != nil {
		t.Fatalf("MoveTaskBetween() error = %v", err)
	}
	if !slices.Equal(a.TaskIDs, []string{"T2"}) {
		t.Fatalf("unexpected source order %v", a.TaskIDs)
	}
	if !slices.Equal(b.TaskIDs, []string{"T1", "T3"}) {
		t.Fatalf("unexpected destination order %v", b.TaskIDs)
	}
	if task.SectionID != "B" {
		t.Fatalf("back-reference not updated: %q", task.SectionID)
	}
}

func TestMoveTaskBetweenRejectsCrossBoard(t *testing.T) {
	now := time.Now()
	a, _ := NewSection("A", "b1", "To Do", now)
	b, _ := NewSection("B", "b2", "To Do", now)
	_ = a.InsertTask("T1", 0, now)
	task, _ := NewTask(TaskInput{ID: "T1", BoardID: "b1", SectionID: "A", Title: "first"}, now)
	if err := MoveTaskBetween(&a, &b, &task, 0, now); err != ErrInvalidSectionID {
		t.Fatalf("expected ErrInvalidSectionID, got %v", err)
	}
}

func TestNewTaskDefaultsAndValidation(t *testing.T) {
	now := time.Now()
	task, err := NewTask(TaskInput{ID: "t1", BoardID: "b1", SectionID: "s1", Title: " padded "}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.Title != "padded" {
		t.Fatalf("unexpected title %q", task.Title)
	}
	if task.Priority != PriorityMedium {
		t.Fatalf("unexpected default priority %q", task.Priority)
	}
	if task.Status != StatusOpen {
		t.Fatalf("unexpected default status %q", task.Status)
	}

	if _, err := NewTask(TaskInput{ID: "t1", BoardID: "b1", SectionID: "", Title: "x"}, now); err != ErrInvalidSectionID {
		t.Fatalf("expected ErrInvalidSectionID, got %v", err)
	}
	if _, err := NewTask(TaskInput{ID: "t1", BoardID: "b1", SectionID: "s1", Title: "x", Priority: "urgent"}, now); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestTaskRelocate(t *testing.T) {
	now := time.Now()
	task, _ := NewTask(TaskInput{ID: "t1", BoardID: "b1", SectionID: "s1", Title: "x"}, now)
	if err := task.Relocate(" ", now); err != ErrInvalidSectionID {
		t.Fatalf("expected ErrInvalidSectionID, got %v", err)
	}
	if err := task.Relocate("s2", now.Add(time.Minute)); err != nil {
		t.Fatalf("Relocate() error = %v", err)
	}
	if task.SectionID != "s2" {
		t.Fatalf("unexpected section %q", task.SectionID)
	}
}
