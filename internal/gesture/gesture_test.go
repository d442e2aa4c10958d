package gesture

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/soltrom/flytt/internal/domain"
	"github.com/soltrom/flytt/internal/reorder"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

var testNow = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

// testRecognizer builds a recognizer over sections S1(T1,T2,T3), S2(T4),
// S3() rendered as 20-cell columns with a header row at y=0 and 3-cell
// cards from y=1, plus a trailing add-column sentinel.
// Column x-centers: S1≈10, S2≈30, S3≈50. Card y-centers in S1: T1=2, T2=5, T3=8.
func testRecognizer(t *testing.T) (*Recognizer, *store.Store, *surface.Surface) {
	t.Helper()
	board, err := domain.NewBoard("b1", "Work", testNow)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	byCol := map[string][]string{"S1": {"T1", "T2", "T3"}, "S2": {"T4"}, "S3": nil}
	snap := store.Snapshot{}
	for _, secID := range []string{"S1", "S2", "S3"} {
		_ = board.AppendSection(secID, testNow)
		sec, _ := domain.NewSection(secID, "b1", secID, testNow)
		for i, taskID := range byCol[secID] {
			_ = sec.InsertTask(taskID, i, testNow)
			task, err := domain.NewTask(domain.TaskInput{
				ID: taskID, BoardID: "b1", SectionID: secID, Title: taskID,
			}, testNow)
			if err != nil {
				t.Fatalf("NewTask(%s) error = %v", taskID, err)
			}
			snap.Tasks = append(snap.Tasks, task)
		}
		snap.Sections = append(snap.Sections, sec)
	}
	snap.Board = board

	st := store.New(func() time.Time { return testNow })
	if err := st.Load(snap); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	surf := surface.New()
	x := 0
	for _, sec := range st.SectionsInOrder() {
		col := surface.NewNode(sec.ID, surface.KindColumn)
		col.Rect = surface.Rect{X: x, Y: 0, W: 20, H: 30}
		y := 1
		for _, task := range st.TasksOf(sec.ID) {
			card := surface.NewNode(task.ID, surface.KindCard)
			card.Rect = surface.Rect{X: x, Y: y, W: 20, H: 3}
			col.Append(card)
			y += 3
		}
		surf.Root().Append(col)
		x += 20
	}
	sentinel := surface.NewNode("add-section", surface.KindSentinel)
	sentinel.Rect = surface.Rect{X: x, Y: 0, W: 20, H: 30}
	surf.Root().Append(sentinel)

	tasks := reorder.NewTaskController(st, surf, nil)
	sections := reorder.NewSectionController(st, surf, nil)
	return New(tasks, sections, st, surf, nil), st, surf
}

func TestTouchOffHandleDoesNotDrag(t *testing.T) {
	r, _, _ := testRecognizer(t)
	// Inside card T2 but below its title row.
	started, err := r.TouchStart(10, 5)
	if err != nil {
		t.Fatalf("TouchStart() error = %v", err)
	}
	if started || r.Active() || r.ScrollSuppressed() {
		t.Fatal("touch off the handle must not begin a session")
	}
}

func TestTouchOnSentinelDoesNotDrag(t *testing.T) {
	r, _, _ := testRecognizer(t)
	started, err := r.TouchStart(70, 0)
	if err != nil {
		t.Fatalf("TouchStart() error = %v", err)
	}
	if started {
		t.Fatal("the add-column control is not draggable")
	}
}

func TestTaskTouchFlow(t *testing.T) {
	r, _, _ := testRecognizer(t)
	started, err := r.TouchStart(10, 1)
	if err != nil || !started {
		t.Fatalf("TouchStart() = %v, %v", started, err)
	}
	if !r.ScrollSuppressed() {
		t.Fatal("scroll must be suppressed while dragging")
	}
	if err := r.TouchMove(30, 2); err != nil {
		t.Fatalf("TouchMove() error = %v", err)
	}

	intent, ok, err := r.TouchEnd(30, 1)
	if err != nil || !ok {
		t.Fatalf("TouchEnd() = %v, %v", ok, err)
	}
	want := reorder.Intent{
		Kind: reorder.KindTask, EntityID: "T1",
		SourceID: "S1", TargetID: "S2", Index: 0,
	}
	if intent != want {
		t.Fatalf("unexpected intent %+v, want %+v", intent, want)
	}
	if r.Active() {
		t.Fatal("session must end on touch end")
	}
}

func TestSectionTouchDropUsesAuthoritativeOrder(t *testing.T) {
	r, _, _ := testRecognizer(t)
	if started, err := r.TouchStart(50, 0); err != nil || !started {
		t.Fatalf("TouchStart() = %v, %v", started, err)
	}
	intent, ok, err := r.TouchEnd(5, 0)
	if err != nil || !ok {
		t.Fatalf("TouchEnd() = %v, %v", ok, err)
	}
	want := reorder.Intent{Kind: reorder.KindSection, EntityID: "S3", SourceID: "b1", Index: 0}
	if intent != want {
		t.Fatalf("unexpected intent %+v, want %+v", intent, want)
	}
}

func TestSectionTouchDropRemapsRightwardMove(t *testing.T) {
	r, _, _ := testRecognizer(t)
	if started, err := r.TouchStart(10, 0); err != nil || !started {
		t.Fatalf("TouchStart() = %v, %v", started, err)
	}
	// Final point between S2 and S3 midpoints: insertion before S3, which
	// sits past S1's original slot, so the index pulls back by one.
	intent, ok, err := r.TouchEnd(45, 0)
	if err != nil || !ok {
		t.Fatalf("TouchEnd() = %v, %v", ok, err)
	}
	if intent.EntityID != "S1" || intent.Index != 1 {
		t.Fatalf("unexpected intent %+v, want S1 at index 1", intent)
	}
}

func TestSectionTouchDropUnchangedIsNoop(t *testing.T) {
	r, st, _ := testRecognizer(t)
	if started, err := r.TouchStart(10, 0); err != nil || !started {
		t.Fatalf("TouchStart() = %v, %v", started, err)
	}
	// Lands right back before S2: post-remap index equals the original.
	if _, ok, err := r.TouchEnd(5, 0); ok || err != nil {
		t.Fatalf("unchanged drop = %v, %v; want no intent", ok, err)
	}
	if got := st.Board().SectionOrder; !slices.Equal(got, []string{"S1", "S2", "S3"}) {
		t.Fatalf("state must be untouched, got %v", got)
	}
}

func TestTouchEndWithoutSession(t *testing.T) {
	r, _, _ := testRecognizer(t)
	if _, _, err := r.TouchEnd(10, 1); !errors.Is(err, reorder.ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging, got %v", err)
	}
}

func TestTouchCancelAbandonsSession(t *testing.T) {
	r, st, _ := testRecognizer(t)
	if started, err := r.TouchStart(10, 1); err != nil || !started {
		t.Fatalf("TouchStart() = %v, %v", started, err)
	}
	r.TouchCancel()
	if r.Active() {
		t.Fatal("cancel must end the session")
	}
	if got := st.TaskOrderOf("S1"); !slices.Equal(got, []string{"T1", "T2", "T3"}) {
		t.Fatalf("state must be untouched, got %v", got)
	}
}

func TestTouchMoveWithoutSessionScrolls(t *testing.T) {
	r, _, surf := testRecognizer(t)
	if err := r.TouchMove(30, 2); err != nil {
		t.Fatalf("TouchMove() error = %v", err)
	}
	col, _ := surf.Column("S1")
	if got := col.ChildIDs(); !slices.Equal(got, []string{"T1", "T2", "T3"}) {
		t.Fatalf("idle move must not reposition, got %v", got)
	}
}
