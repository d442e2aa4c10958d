package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

type Status string

const (
	StatusOpen    Status = "open"
	StatusBlocked Status = "blocked"
	StatusDone    Status = "done"
)

var validStatuses = []Status{StatusOpen, StatusBlocked, StatusDone}

// Task is the atomic work item. SectionID is a back-reference that must
// match the section whose TaskIDs contains this task; the reorder engine
// only ever touches that back-reference, never the display attributes.
type Task struct {
	ID          string
	BoardID     string
	SectionID   string
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskInput struct {
	ID          string
	BoardID     string
	SectionID   string
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueAt       *time.Time
}

func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.BoardID = strings.TrimSpace(in.BoardID)
	in.SectionID = strings.TrimSpace(in.SectionID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.ID == "" || in.BoardID == "" {
		return Task{}, ErrInvalidID
	}
	if in.SectionID == "" {
		return Task{}, ErrInvalidSectionID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Task{}, ErrInvalidPriority
	}
	if in.Status == "" {
		in.Status = StatusOpen
	}
	if !slices.Contains(validStatuses, in.Status) {
		return Task{}, ErrInvalidStatus
	}

	return Task{
		ID:          in.ID,
		BoardID:     in.BoardID,
		SectionID:   in.SectionID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueAt:       normalizeDueAt(in.DueAt),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Relocate updates the section back-reference after a move.
func (t *Task) Relocate(sectionID string, now time.Time) error {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return ErrInvalidSectionID
	}
	t.SectionID = sectionID
	t.UpdatedAt = now.UTC()
	return nil
}

func (t *Task) UpdateDetails(title, description string, priority Priority, status Status, dueAt *time.Time, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	if !slices.Contains(validStatuses, status) {
		return ErrInvalidStatus
	}
	t.Title = title
	t.Description = strings.TrimSpace(description)
	t.Priority = priority
	t.Status = status
	t.DueAt = normalizeDueAt(dueAt)
	t.UpdatedAt = now.UTC()
	return nil
}

func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}
