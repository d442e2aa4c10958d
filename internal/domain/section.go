package domain

import (
	"slices"
	"strings"
	"time"
)

// Section is a named, ordered container of tasks within a board. TaskIDs is
// authoritative for card display order; each task id appears in exactly one
// section's TaskIDs across the whole system.
type Section struct {
	ID        string
	BoardID   string
	Name      string
	TaskIDs   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSection constructs a new value for this package.
func NewSection(id, boardID, name string, now time.Time) (Section, error) {
	id = strings.TrimSpace(id)
	boardID = strings.TrimSpace(boardID)
	name = strings.TrimSpace(name)
	if id == "" || boardID == "" {
		return Section{}, ErrInvalidID
	}
	if name == "" {
		return Section{}, ErrInvalidName
	}
	return Section{
		ID:        id,
		BoardID:   boardID,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename updates the display name.
func (s *Section) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	s.Name = name
	s.UpdatedAt = now.UTC()
	return nil
}

// TaskIndex returns the position of a task id in this section, or -1.
func (s Section) TaskIndex(taskID string) int {
	return slices.Index(s.TaskIDs, taskID)
}

// InsertTask inserts a task id at index, clamping past-the-end indexes.
func (s *Section) InsertTask(taskID string, index int, now time.Time) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return ErrInvalidID
	}
	if index < 0 {
		return ErrInvalidIndex
	}
	if slices.Contains(s.TaskIDs, taskID) {
		return ErrDuplicateEntry
	}
	if index > len(s.TaskIDs) {
		index = len(s.TaskIDs)
	}
	s.TaskIDs = slices.Insert(slices.Clone(s.TaskIDs), index, taskID)
	s.UpdatedAt = now.UTC()
	return nil
}

// RemoveTask removes a task id from this section's order.
func (s *Section) RemoveTask(taskID string, now time.Time) error {
	idx := s.TaskIndex(taskID)
	if idx < 0 {
		return ErrUnknownTask
	}
	s.TaskIDs = slices.Delete(slices.Clone(s.TaskIDs), idx, idx+1)
	s.UpdatedAt = now.UTC()
	return nil
}

// MoveTaskWithin removes taskID and reinserts it at newIndex inside the same
// section. The caller passes the index already adjusted for the removal.
func (s *Section) MoveTaskWithin(taskID string, newIndex int, now time.Time) error {
	if newIndex < 0 {
		return ErrInvalidIndex
	}
	from := s.TaskIndex(taskID)
	if from < 0 {
		return ErrUnknownTask
	}
	order := slices.Delete(slices.Clone(s.TaskIDs), from, from+1)
	if newIndex > len(order) {
		newIndex = len(order)
	}
	s.TaskIDs = slices.Insert(order, newIndex, taskID)
	s.UpdatedAt = now.UTC()
	return nil
}

// MoveTaskBetween splices a task out of src and into dst at index, keeping
// both orders and the task's section back-reference consistent. It is the
// pure reducer for cross-section moves; src and dst must belong to the same
// board and must be distinct.
func MoveTaskBetween(src, dst *Section, task *Task, index int, now time.Time) error {
	if src == nil || dst == nil || task == nil {
		return ErrInvalidID
	}
	if src.ID == dst.ID {
		return src.MoveTaskWithin(task.ID, index, now)
	}
	if src.BoardID != dst.BoardID {
		return ErrInvalidSectionID
	}
	if err := src.RemoveTask(task.ID, now); err != nil {
		return err
	}
	if err := dst.InsertTask(task.ID, index, now); err != nil {
		return err
	}
	return task.Relocate(dst.ID, now)
}
