package app

import (
	"context"

	"github.com/soltrom/flytt/internal/domain"
)

// Repository is the persistence port. Order is persisted as position
// columns: implementations derive Board.SectionOrder and Section.TaskIDs
// from positions on read, and SaveSectionOrder/SaveTaskOrder rewrite the
// positions (and, for tasks, the owning section) wholesale.
type Repository interface {
	CreateBoard(context.Context, domain.Board) error
	UpdateBoard(context.Context, domain.Board) error
	GetBoard(context.Context, string) (domain.Board, error)
	ListBoards(context.Context) ([]domain.Board, error)
	SaveSectionOrder(context.Context, string, []string) error

	CreateSection(context.Context, domain.Section) error
	UpdateSection(context.Context, domain.Section) error
	ListSections(context.Context, string) ([]domain.Section, error)
	SaveTaskOrder(context.Context, string, []string) error

	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context, string) ([]domain.Task, error)
}
