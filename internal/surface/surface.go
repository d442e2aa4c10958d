// Package surface models the rendered board as an ordered node tree: column
// nodes under a root, card nodes under columns. Reorder controllers move
// nodes here for live visual feedback before anything is persisted, and the
// consistency guard re-derives this tree from state when the two diverge.
// Duplicate nodes for one entity id can exist transiently after overlapping
// drags; the tree does not enforce uniqueness so the guard can observe and
// repair it.
package surface

import (
	"github.com/soltrom/flytt/internal/geometry"
)

// Kind classifies a node.
type Kind int

const (
	KindColumn Kind = iota
	KindCard
	// KindSentinel marks non-reorderable controls such as the trailing
	// "add column" tile; geometry scans must never consider them.
	KindSentinel
)

// Rect is a node's rendered cell rectangle.
type Rect struct {
	X, Y, W, H int
}

// HBounds returns the horizontal extent, the reorder axis for columns.
func (r Rect) HBounds() geometry.Bounds {
	return geometry.Bounds{Start: r.X, Extent: r.W}
}

// VBounds returns the vertical extent, the reorder axis for cards.
func (r Rect) VBounds() geometry.Bounds {
	return geometry.Bounds{Start: r.Y, Extent: r.H}
}

// Contains reports whether a point falls inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Node is one visual element.
type Node struct {
	ID       string
	Kind     Kind
	Rect     Rect
	Dragging bool
	children []*Node
}

// NewNode constructs a node.
func NewNode(id string, kind Kind) *Node {
	return &Node{ID: id, Kind: kind}
}

// Children returns the child list in visual order. The returned slice is the
// live backing array; callers must not retain it across mutations.
func (n *Node) Children() []*Node { return n.children }

// Append adds a child at the end.
func (n *Node) Append(child *Node) {
	n.children = append(n.children, child)
}

// ChildIDs returns child entity ids in visual order, skipping sentinels.
func (n *Node) ChildIDs() []string {
	out := make([]string, 0, len(n.children))
	for _, c := range n.children {
		if c.Kind == KindSentinel {
			continue
		}
		out = append(out, c.ID)
	}
	return out
}

// Child returns the first child with the given id.
func (n *Node) Child(id string) (*Node, bool) {
	for _, c := range n.children {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// ChildIndex returns the visual index of a child among non-sentinel
// siblings, or -1.
func (n *Node) ChildIndex(id string) int {
	idx := 0
	for _, c := range n.children {
		if c.Kind == KindSentinel {
			continue
		}
		if c.ID == id {
			return idx
		}
		idx++
	}
	return -1
}

// RemoveChild detaches the first child with the given id and returns it.
func (n *Node) RemoveChild(id string) (*Node, bool) {
	for i, c := range n.children {
		if c.ID == id {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return c, true
		}
	}
	return nil, false
}

// Remove detaches the exact child node, matched by identity rather than id.
// The distinction matters when duplicates share an id.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return true
		}
	}
	return false
}

// InsertBefore places child before the sibling with beforeID; with an empty
// beforeID the child is appended ahead of any trailing sentinel.
func (n *Node) InsertBefore(child *Node, beforeID string) {
	if beforeID != "" {
		for i, c := range n.children {
			if c.ID == beforeID {
				n.children = append(n.children[:i], append([]*Node{child}, n.children[i:]...)...)
				return
			}
		}
	}
	// Append, but keep sentinels at the tail.
	for i, c := range n.children {
		if c.Kind == KindSentinel {
			n.children = append(n.children[:i], append([]*Node{child}, n.children[i:]...)...)
			return
		}
	}
	n.children = append(n.children, child)
}

// MoveBefore repositions an existing child before beforeID (or to the tail
// with an empty beforeID). It reports whether the child was found.
func (n *Node) MoveBefore(id, beforeID string) bool {
	if id == beforeID {
		return true
	}
	child, ok := n.RemoveChild(id)
	if !ok {
		return false
	}
	n.InsertBefore(child, beforeID)
	return true
}

// Candidates projects children onto one axis for an insertion scan,
// excluding sentinels and any listed ids (the dragged node).
func (n *Node) Candidates(vertical bool, exclude ...string) []geometry.Candidate {
	out := make([]geometry.Candidate, 0, len(n.children))
	for _, c := range n.children {
		if c.Kind == KindSentinel {
			continue
		}
		b := c.Rect.HBounds()
		if vertical {
			b = c.Rect.VBounds()
		}
		out = append(out, geometry.Candidate{ID: c.ID, Bounds: b})
	}
	return geometry.Exclude(out, exclude...)
}

// Surface is the board's visual tree: a root whose children are columns.
type Surface struct {
	root *Node
}

// New constructs an empty surface.
func New() *Surface {
	return &Surface{root: NewNode("", KindColumn)}
}

// Root returns the root node.
func (s *Surface) Root() *Node { return s.root }

// Columns returns column nodes in visual order, including sentinels.
func (s *Surface) Columns() []*Node { return s.root.children }

// Column returns the first column node with the given id.
func (s *Surface) Column(id string) (*Node, bool) { return s.root.Child(id) }

// ColumnAt returns the column whose rectangle contains the point.
func (s *Surface) ColumnAt(x, y int) (*Node, bool) {
	for _, col := range s.root.children {
		if col.Rect.Contains(x, y) {
			return col, true
		}
	}
	return nil, false
}

// CardAt returns the card under the point together with its column.
func (s *Surface) CardAt(x, y int) (card, column *Node, ok bool) {
	col, ok := s.ColumnAt(x, y)
	if !ok {
		return nil, nil, false
	}
	for _, c := range col.children {
		if c.Rect.Contains(x, y) {
			return c, col, true
		}
	}
	return nil, col, false
}

// FindCard returns the first card node with the given id and its column.
func (s *Surface) FindCard(id string) (card, column *Node, ok bool) {
	for _, col := range s.root.children {
		if c, found := col.Child(id); found {
			return c, col, true
		}
	}
	return nil, nil, false
}

// NodesByID returns every node carrying the entity id, in render order.
// More than one result means overlapping drags left a duplicate behind.
func (s *Surface) NodesByID(id string) []*Node {
	var out []*Node
	for _, col := range s.root.children {
		if col.ID == id {
			out = append(out, col)
		}
		for _, c := range col.children {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out
}
