package tui

import "time"

type Option func(*Model)

// WithHoverInterval tunes how often a column drag recomputes its insertion
// point while hovering.
func WithHoverInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.hoverInterval = d
		}
	}
}

// WithMinDragDistance suppresses column hover recomputes until the cursor
// has moved at least this many cells since the last one.
func WithMinDragDistance(cells int) Option {
	return func(m *Model) {
		if cells > 0 {
			m.minDragDistance = cells
		}
	}
}
