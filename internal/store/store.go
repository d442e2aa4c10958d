// Package store holds the client-side in-memory board state. One Store is
// owned by the application shell and passed into the reorder controllers;
// nothing reaches into ambient globals.
package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/soltrom/flytt/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// Snapshot is a full board load: the board plus every section and task that
// belongs to it, as returned by the backend.
type Snapshot struct {
	Board    domain.Board
	Sections []domain.Section
	Tasks    []domain.Task
}

// Store keeps one board's entities and their authoritative order. The
// reorder engine mutates order only; entities are created and destroyed by
// the CRUD layer and arrive here wholesale via Load.
type Store struct {
	board    domain.Board
	sections map[string]*domain.Section
	tasks    map[string]*domain.Task
	clock    Clock
	loaded   bool
}

// New constructs an empty store.
func New(clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		sections: map[string]*domain.Section{},
		tasks:    map[string]*domain.Task{},
		clock:    clock,
	}
}

// Load replaces the entire store contents with a snapshot. The snapshot is
// validated before anything is swapped in, so a bad payload never leaves the
// store half-replaced.
func (s *Store) Load(snap Snapshot) error {
	sections := make(map[string]*domain.Section, len(snap.Sections))
	for i := range snap.Sections {
		sec := snap.Sections[i]
		if _, ok := sections[sec.ID]; ok {
			return fmt.Errorf("section %s: %w", sec.ID, domain.ErrDuplicateEntry)
		}
		sections[sec.ID] = &sec
	}
	tasks := make(map[string]*domain.Task, len(snap.Tasks))
	for i := range snap.Tasks {
		task := snap.Tasks[i]
		if _, ok := tasks[task.ID]; ok {
			return fmt.Errorf("task %s: %w", task.ID, domain.ErrDuplicateEntry)
		}
		tasks[task.ID] = &task
	}
	if err := validate(snap.Board, sections, tasks); err != nil {
		return err
	}
	s.board = snap.Board
	s.sections = sections
	s.tasks = tasks
	s.loaded = true
	return nil
}

// Loaded reports whether a snapshot has been applied.
func (s *Store) Loaded() bool { return s.loaded }

// Board returns the board value.
func (s *Store) Board() domain.Board { return s.board }

// Section returns a copy of the section with the given id.
func (s *Store) Section(id string) (domain.Section, bool) {
	sec, ok := s.sections[id]
	if !ok {
		return domain.Section{}, false
	}
	return *sec, true
}

// Task returns a copy of the task with the given id.
func (s *Store) Task(id string) (domain.Task, bool) {
	task, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return *task, true
}

// SectionsInOrder returns sections in board display order.
func (s *Store) SectionsInOrder() []domain.Section {
	out := make([]domain.Section, 0, len(s.board.SectionOrder))
	for _, id := range s.board.SectionOrder {
		if sec, ok := s.sections[id]; ok {
			out = append(out, *sec)
		}
	}
	return out
}

// TasksOf returns a section's tasks in card display order.
func (s *Store) TasksOf(sectionID string) []domain.Task {
	sec, ok := s.sections[sectionID]
	if !ok {
		return nil
	}
	out := make([]domain.Task, 0, len(sec.TaskIDs))
	for _, id := range sec.TaskIDs {
		if task, ok := s.tasks[id]; ok {
			out = append(out, *task)
		}
	}
	return out
}

// ApplyTaskMove splices a task from one section to another (or within one)
// at the given index. This is the local-splice reconciliation path used when
// the backend acknowledges without an authoritative payload.
func (s *Store) ApplyTaskMove(taskID, fromSectionID, toSectionID string, index int) error {
	task, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrUnknownTask
	}
	src, ok := s.sections[fromSectionID]
	if !ok {
		return domain.ErrUnknownSection
	}
	dst, ok := s.sections[toSectionID]
	if !ok {
		return domain.ErrUnknownSection
	}
	return domain.MoveTaskBetween(src, dst, task, index, s.clock())
}

// ApplySectionMove reorders the board's section order locally.
func (s *Store) ApplySectionMove(sectionID string, index int) error {
	return s.board.MoveSection(sectionID, index, s.clock())
}

// ReplaceSectionOrder installs a server-confirmed section order wholesale.
func (s *Store) ReplaceSectionOrder(order []string) error {
	return s.board.ReplaceSectionOrder(order, s.clock())
}

// ReplaceTaskAndSections installs server-returned task and section objects
// wholesale; the server is authoritative when it sends full entities back.
func (s *Store) ReplaceTaskAndSections(task domain.Task, sections []domain.Section) error {
	if _, ok := s.tasks[task.ID]; !ok {
		return domain.ErrUnknownTask
	}
	for i := range sections {
		if _, ok := s.sections[sections[i].ID]; !ok {
			return fmt.Errorf("section %s: %w", sections[i].ID, domain.ErrUnknownSection)
		}
	}
	t := task
	s.tasks[task.ID] = &t
	for i := range sections {
		sec := sections[i]
		s.sections[sec.ID] = &sec
	}
	return nil
}

// Validate checks the partition and permutation invariants: SectionOrder is
// a permutation of the board's section ids, every task id appears in exactly
// one section's order, and back-references line up.
func (s *Store) Validate() error {
	return validate(s.board, s.sections, s.tasks)
}

func validate(board domain.Board, sections map[string]*domain.Section, tasks map[string]*domain.Task) error {
	if len(board.SectionOrder) != len(sections) {
		return fmt.Errorf("section order has %d entries for %d sections: %w",
			len(board.SectionOrder), len(sections), domain.ErrOrderDiverged)
	}
	seenSections := make(map[string]struct{}, len(board.SectionOrder))
	for _, id := range board.SectionOrder {
		if _, dup := seenSections[id]; dup {
			return fmt.Errorf("section order repeats %s: %w", id, domain.ErrDuplicateEntry)
		}
		seenSections[id] = struct{}{}
		sec, ok := sections[id]
		if !ok {
			return fmt.Errorf("section order references %s: %w", id, domain.ErrUnknownSection)
		}
		if sec.BoardID != board.ID {
			return fmt.Errorf("section %s belongs to board %s: %w", id, sec.BoardID, domain.ErrOrderDiverged)
		}
	}

	owner := make(map[string]string, len(tasks))
	for _, id := range board.SectionOrder {
		sec := sections[id]
		seenTasks := make(map[string]struct{}, len(sec.TaskIDs))
		for _, taskID := range sec.TaskIDs {
			if _, dup := seenTasks[taskID]; dup {
				return fmt.Errorf("section %s repeats task %s: %w", id, taskID, domain.ErrDuplicateEntry)
			}
			seenTasks[taskID] = struct{}{}
			if prev, claimed := owner[taskID]; claimed {
				return fmt.Errorf("task %s in sections %s and %s: %w", taskID, prev, id, domain.ErrDuplicateEntry)
			}
			owner[taskID] = id
			task, ok := tasks[taskID]
			if !ok {
				return fmt.Errorf("section %s references task %s: %w", id, taskID, domain.ErrUnknownTask)
			}
			if task.SectionID != id {
				return fmt.Errorf("task %s back-reference %s != section %s: %w",
					taskID, task.SectionID, id, domain.ErrOrderDiverged)
			}
		}
	}
	for taskID := range tasks {
		if _, ok := owner[taskID]; !ok {
			return fmt.Errorf("task %s not in any section order: %w", taskID, domain.ErrOrderDiverged)
		}
	}
	return nil
}

// Snapshot exports the current store contents in board display order.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{Board: s.board}
	for _, sec := range s.SectionsInOrder() {
		snap.Sections = append(snap.Sections, sec)
		snap.Tasks = append(snap.Tasks, s.TasksOf(sec.ID)...)
	}
	return snap
}

// TaskOrderOf returns a copy of one section's task id order.
func (s *Store) TaskOrderOf(sectionID string) []string {
	sec, ok := s.sections[sectionID]
	if !ok {
		return nil
	}
	return slices.Clone(sec.TaskIDs)
}
