package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/soltrom/flytt/internal/app"
	"github.com/soltrom/flytt/internal/domain"
	_ "modernc.org/sqlite"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "flytt.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestRepository_BoardSectionTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	board, err := domain.NewBoard("b1", "Work", now)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	if err := repo.CreateBoard(ctx, board); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}

	for _, id := range []string{"S1", "S2", "S3"} {
		sec, err := domain.NewSection(id, board.ID, id, now)
		if err != nil {
			t.Fatalf("NewSection(%s) error = %v", id, err)
		}
		if err := repo.CreateSection(ctx, sec); err != nil {
			t.Fatalf("CreateSection(%s) error = %v", id, err)
		}
	}

	loaded, err := repo.GetBoard(ctx, board.ID)
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if loaded.Name != "Work" {
		t.Fatalf("unexpected board name %q", loaded.Name)
	}
	if !slices.Equal(loaded.SectionOrder, []string{"S1", "S2", "S3"}) {
		t.Fatalf("derived section order = %v", loaded.SectionOrder)
	}

	due := now.Add(24 * time.Hour)
	for i, id := range []string{"T1", "T2", "T3"} {
		input := domain.TaskInput{
			ID: id, BoardID: board.ID, SectionID: "S1", Title: id,
			Priority: domain.PriorityHigh,
		}
		if i == 0 {
			input.DueAt = &due
			input.Description = "details"
		}
		task, err := domain.NewTask(input, now)
		if err != nil {
			t.Fatalf("NewTask(%s) error = %v", id, err)
		}
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask(%s) error = %v", id, err)
		}
	}

	sections, err := repo.ListSections(ctx, board.ID)
	if err != nil {
		t.Fatalf("ListSections() error = %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(sections))
	}
	if !slices.Equal(sections[0].TaskIDs, []string{"T1", "T2", "T3"}) {
		t.Fatalf("derived task order = %v", sections[0].TaskIDs)
	}

	task, err := repo.GetTask(ctx, "T1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.DueAt == nil || !task.DueAt.Equal(due) {
		t.Fatalf("due date did not round-trip: %v", task.DueAt)
	}
	if task.Description != "details" || task.Priority != domain.PriorityHigh {
		t.Fatalf("task attributes did not round-trip: %+v", task)
	}
}

func TestRepository_SaveSectionOrder(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	board, _ := domain.NewBoard("b1", "Work", now)
	if err := repo.CreateBoard(ctx, board); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	for _, id := range []string{"S1", "S2", "S3"} {
		sec, _ := domain.NewSection(id, board.ID, id, now)
		if err := repo.CreateSection(ctx, sec); err != nil {
			t.Fatalf("CreateSection(%s) error = %v", id, err)
		}
	}

	if err := repo.SaveSectionOrder(ctx, board.ID, []string{"S3", "S1", "S2"}); err != nil {
		t.Fatalf("SaveSectionOrder() error = %v", err)
	}
	loaded, err := repo.GetBoard(ctx, board.ID)
	if err != nil {
		t.Fatalf("GetBoard() error = %v", err)
	}
	if !slices.Equal(loaded.SectionOrder, []string{"S3", "S1", "S2"}) {
		t.Fatalf("persisted order = %v", loaded.SectionOrder)
	}
}

func TestRepository_SaveTaskOrderMovesAcrossSections(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	board, _ := domain.NewBoard("b1", "Work", now)
	if err := repo.CreateBoard(ctx, board); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	for _, id := range []string{"A", "B"} {
		sec, _ := domain.NewSection(id, board.ID, id, now)
		if err := repo.CreateSection(ctx, sec); err != nil {
			t.Fatalf("CreateSection(%s) error = %v", id, err)
		}
	}
	for _, spec := range []struct{ id, sec string }{{"T1", "A"}, {"T2", "A"}, {"T3", "B"}} {
		task, _ := domain.NewTask(domain.TaskInput{
			ID: spec.id, BoardID: board.ID, SectionID: spec.sec, Title: spec.id,
		}, now)
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask(%s) error = %v", spec.id, err)
		}
	}

	// T1 moves to the head of B.
	if err := repo.SaveTaskOrder(ctx, "A", []string{"T2"}); err != nil {
		t.Fatalf("SaveTaskOrder(A) error = %v", err)
	}
	if err := repo.SaveTaskOrder(ctx, "B", []string{"T1", "T3"}); err != nil {
		t.Fatalf("SaveTaskOrder(B) error = %v", err)
	}

	sections, err := repo.ListSections(ctx, board.ID)
	if err != nil {
		t.Fatalf("ListSections() error = %v", err)
	}
	if !slices.Equal(sections[0].TaskIDs, []string{"T2"}) {
		t.Fatalf("A order = %v", sections[0].TaskIDs)
	}
	if !slices.Equal(sections[1].TaskIDs, []string{"T1", "T3"}) {
		t.Fatalf("B order = %v", sections[1].TaskIDs)
	}
	task, err := repo.GetTask(ctx, "T1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.SectionID != "B" {
		t.Fatalf("section_id = %s, want B", task.SectionID)
	}
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	if _, err := repo.GetBoard(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetBoard() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetTask(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("GetTask() error = %v, want ErrNotFound", err)
	}

	task, _ := domain.NewTask(domain.TaskInput{
		ID: "ghost", BoardID: "b1", SectionID: "S1", Title: "ghost",
	}, now)
	if err := repo.UpdateTask(ctx, task); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("UpdateTask() error = %v, want ErrNotFound", err)
	}
	board, _ := domain.NewBoard("ghost", "Ghost", now)
	if err := repo.UpdateBoard(ctx, board); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("UpdateBoard() error = %v, want ErrNotFound", err)
	}
}

// The service drives the repository end to end through a move.
func TestRepository_ServiceMoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	n := 0
	svc := app.NewService(repo, func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}, nil, app.ServiceConfig{})

	board, err := svc.EnsureDefaultBoard(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultBoard() error = %v", err)
	}
	task, err := svc.CreateTask(ctx, app.CreateTaskInput{
		BoardID:   board.ID,
		SectionID: board.SectionOrder[0],
		Title:     "move me",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	moved, changed, err := svc.MoveTask(ctx, app.MoveTaskInput{
		TaskID:      task.ID,
		ToSectionID: board.SectionOrder[1],
		NewIndex:    0,
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if moved.SectionID != board.SectionOrder[1] {
		t.Fatalf("SectionID = %s, want %s", moved.SectionID, board.SectionOrder[1])
	}
	if len(changed) != 2 {
		t.Fatalf("changed sections = %d, want 2", len(changed))
	}

	state, err := svc.BoardState(ctx, board.ID)
	if err != nil {
		t.Fatalf("BoardState() error = %v", err)
	}
	if len(state.Sections[0].TaskIDs) != 0 {
		t.Fatalf("source not emptied: %v", state.Sections[0].TaskIDs)
	}
	if !slices.Equal(state.Sections[1].TaskIDs, []string{task.ID}) {
		t.Fatalf("destination order = %v", state.Sections[1].TaskIDs)
	}
}
