package domain

import (
	"slices"
	"strings"
	"time"
)

// Board is the top-level container holding an ordered set of sections.
// SectionOrder is authoritative for column display order: every id in it
// must reference an existing section belonging to this board, with no
// duplicates.
type Board struct {
	ID           string
	Name         string
	SectionOrder []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewBoard constructs a new value for this package.
func NewBoard(id, name string, now time.Time) (Board, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Board{}, ErrInvalidID
	}
	if name == "" {
		return Board{}, ErrInvalidName
	}
	return Board{
		ID:        id,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename updates the display name.
func (b *Board) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	b.Name = name
	b.UpdatedAt = now.UTC()
	return nil
}

// AppendSection adds a section id to the end of the display order.
func (b *Board) AppendSection(sectionID string, now time.Time) error {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return ErrInvalidSectionID
	}
	if slices.Contains(b.SectionOrder, sectionID) {
		return ErrDuplicateEntry
	}
	b.SectionOrder = append(b.SectionOrder, sectionID)
	b.UpdatedAt = now.UTC()
	return nil
}

// SectionIndex returns the position of a section id in the display order,
// or -1 when the id is not part of this board.
func (b Board) SectionIndex(sectionID string) int {
	return slices.Index(b.SectionOrder, sectionID)
}

// SectionAfter returns the section id immediately following the given one
// in display order. The second return is false when the given section is
// last or unknown.
func (b Board) SectionAfter(sectionID string) (string, bool) {
	idx := b.SectionIndex(sectionID)
	if idx < 0 || idx >= len(b.SectionOrder)-1 {
		return "", false
	}
	return b.SectionOrder[idx+1], true
}

// MoveSection removes sectionID from its current slot and reinserts it at
// newIndex. Indexes past the end clamp to the end. This is the pure reducer
// behind section reordering: callers hold the only reference, nothing else
// is mutated.
func (b *Board) MoveSection(sectionID string, newIndex int, now time.Time) error {
	if newIndex < 0 {
		return ErrInvalidIndex
	}
	from := b.SectionIndex(sectionID)
	if from < 0 {
		return ErrUnknownSection
	}
	order := slices.Delete(slices.Clone(b.SectionOrder), from, from+1)
	if newIndex > len(order) {
		newIndex = len(order)
	}
	b.SectionOrder = slices.Insert(order, newIndex, sectionID)
	b.UpdatedAt = now.UTC()
	return nil
}

// ReplaceSectionOrder swaps in a server-confirmed order wholesale. The new
// order must be a permutation of the current one.
func (b *Board) ReplaceSectionOrder(order []string, now time.Time) error {
	if len(order) != len(b.SectionOrder) {
		return ErrOrderDiverged
	}
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, ok := seen[id]; ok {
			return ErrDuplicateEntry
		}
		seen[id] = struct{}{}
		if !slices.Contains(b.SectionOrder, id) {
			return ErrOrderDiverged
		}
	}
	b.SectionOrder = slices.Clone(order)
	b.UpdatedAt = now.UTC()
	return nil
}
