package reorder

import (
	"slices"

	"github.com/charmbracelet/log"
	"github.com/soltrom/flytt/internal/store"
	"github.com/soltrom/flytt/internal/surface"
)

// Guard detects and repairs divergence between the surface and the store
// left behind by overlapping drags or partially-applied repositions. It
// always runs as the last step of a drag-end, before control returns to
// idle. State wins over the surface.
type Guard struct {
	store *store.Store
	surf  *surface.Surface
	log   *log.Logger
}

// Report summarizes one repair pass.
type Report struct {
	DuplicatesRemoved int
	ContainersRebuilt int
}

// Repaired reports whether the pass changed anything.
func (r Report) Repaired() bool {
	return r.DuplicatesRemoved > 0 || r.ContainersRebuilt > 0
}

// NewGuard constructs a guard over the shared store and surface.
func NewGuard(st *store.Store, surf *surface.Surface, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.Default()
	}
	return &Guard{store: st, surf: surf, log: logger}
}

// Repair prunes duplicate nodes and re-syncs visual order to state order.
func (g *Guard) Repair() Report {
	var report Report
	report.DuplicatesRemoved = g.pruneDuplicates()
	report.ContainersRebuilt = g.syncOrder()
	if report.Repaired() {
		g.log.Warn("repaired surface divergence",
			"duplicates_removed", report.DuplicatesRemoved,
			"containers_rebuilt", report.ContainersRebuilt)
	}
	return report
}

// pruneDuplicates removes every node past the first carrying the same
// entity id, in render order.
func (g *Guard) pruneDuplicates() int {
	removed := 0
	seenColumns := map[string]struct{}{}
	seenCards := map[string]struct{}{}
	root := g.surf.Root()

	columns := slices.Clone(root.Children())
	for _, col := range columns {
		if col.Kind != surface.KindSentinel {
			if _, dup := seenColumns[col.ID]; dup {
				root.Remove(col)
				removed++
				continue
			}
			seenColumns[col.ID] = struct{}{}
		}
		cards := slices.Clone(col.Children())
		for _, card := range cards {
			if card.Kind == surface.KindSentinel {
				continue
			}
			if _, dup := seenCards[card.ID]; dup {
				col.Remove(card)
				removed++
				continue
			}
			seenCards[card.ID] = struct{}{}
		}
	}
	return removed
}

// syncOrder rebuilds any container whose visual child order differs from
// the authoritative order array in state.
func (g *Guard) syncOrder() int {
	rebuilt := 0
	root := g.surf.Root()

	want := g.store.Board().SectionOrder
	if !slices.Equal(root.ChildIDs(), want) {
		g.rebuild(root, want)
		rebuilt++
	}
	for _, col := range root.Children() {
		if col.Kind == surface.KindSentinel {
			continue
		}
		wantTasks := g.store.TaskOrderOf(col.ID)
		if !slices.Equal(col.ChildIDs(), wantTasks) {
			g.rebuild(col, wantTasks)
			rebuilt++
		}
	}
	return rebuilt
}

// rebuild reorders a container's children to match the authoritative order,
// reusing existing nodes, synthesizing missing ones, dropping strays, and
// keeping sentinels at the tail.
func (g *Guard) rebuild(container *surface.Node, order []string) {
	childKind := surface.KindCard
	if container == g.surf.Root() {
		childKind = surface.KindColumn
	}

	existing := map[string]*surface.Node{}
	var sentinels []*surface.Node
	for _, c := range container.Children() {
		if c.Kind == surface.KindSentinel {
			sentinels = append(sentinels, c)
			continue
		}
		if _, ok := existing[c.ID]; !ok {
			existing[c.ID] = c
		}
	}
	for len(container.Children()) > 0 {
		container.RemoveChild(container.Children()[0].ID)
	}
	for _, id := range order {
		node, ok := existing[id]
		if !ok {
			node = surface.NewNode(id, childKind)
		}
		container.Append(node)
	}
	for _, s := range sentinels {
		container.Append(s)
	}
}
