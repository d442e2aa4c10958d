package reorder

import (
	"testing"
	"time"

	"github.com/soltrom/flytt/internal/domain"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

var testNow = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

// testBoard builds a store with sections S1(T1,T2,T3), S2(T4), S3() and a
// surface laid out as 20-cell-wide columns with 3-cell-tall cards, plus a
// trailing add-column sentinel.
func testBoard(t *testing.T) (*store.Store, *surface.Surface) {
	t.Helper()
	board, err := domain.NewBoard("b1", "Work", testNow)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	sections := map[string][]string{"S1": {"T1", "T2", "T3"}, "S2": {"T4"}, "S3": nil}
	snap := store.Snapshot{}
	for _, secID := range []string{"S1", "S2", "S3"} {
		_ = board.AppendSection(secID, testNow)
		sec, _ := domain.NewSection(secID, "b1", secID, testNow)
		for i, taskID := range sections[secID] {
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
	return st, layout(st)
}

// layout projects store state onto a fresh surface with fixed geometry.
func layout(st *store.Store) *surface.Surface {
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
	return surf
}

// Column x-centers for the fixture: S1≈10, S2≈30, S3≈50, sentinel≈70.
// Card y-centers in S1: T1=2, T2=5, T3=8.
