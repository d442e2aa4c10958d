// Package geometry decides where a dragged item would be inserted among
// sibling bounds along a single axis: horizontal for columns, vertical for
// cards. It knows nothing about entities or rendering; callers pass the
// candidate list already filtered of the dragged item and any sentinel.
package geometry

// Bounds is a one-dimensional extent in terminal cells.
type Bounds struct {
	Start  int
	Extent int
}

// Midpoint returns the center of the extent. Odd extents round down, which
// keeps the boundary deterministic for the strict-less-than rule below.
func (b Bounds) Midpoint() int {
	return b.Start + b.Extent/2
}

// Contains reports whether the coordinate falls inside the extent.
func (b Bounds) Contains(coord int) bool {
	return coord >= b.Start && coord < b.Start+b.Extent
}

// Candidate is one sibling the dragged item could be inserted before.
type Candidate struct {
	ID     string
	Bounds Bounds
}

// InsertionPoint returns the id of the candidate the dragged item should be
// inserted before, scanning in list order. A candidate is chosen when the
// cursor is strictly before its midpoint; the first match wins, so ties
// resolve to list order and a cursor sitting exactly on a midpoint never
// oscillates. The second return is false when the item should be appended,
// including for an empty candidate list.
func InsertionPoint(coord int, candidates []Candidate) (string, bool) {
	for _, c := range candidates {
		if coord < c.Bounds.Midpoint() {
			return c.ID, true
		}
	}
	return "", false
}

// InsertionIndex is InsertionPoint expressed as an index into candidates;
// len(candidates) means append.
func InsertionIndex(coord int, candidates []Candidate) int {
	for i, c := range candidates {
		if coord < c.Bounds.Midpoint() {
			return i
		}
	}
	return len(candidates)
}

// Exclude returns candidates with the listed ids removed, preserving order.
// Used to drop the dragged item and non-reorderable sentinels before a scan.
func Exclude(candidates []Candidate, ids ...string) []Candidate {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := drop[c.ID]; skip {
			continue
		}
		out = append(out, c)
	}
	return out
}

// HitTest returns the id of the first candidate whose bounds contain the
// coordinate, in list order.
func HitTest(coord int, candidates []Candidate) (string, bool) {
	for _, c := range candidates {
		if c.Bounds.Contains(coord) {
			return c.ID, true
		}
	}
	return "", false
}

// Distance returns the absolute difference between two coordinates.
func Distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
