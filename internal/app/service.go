package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/soltrom/flytt/internal/domain"
)

// SectionTemplate seeds one column on a freshly created board.
type SectionTemplate struct {
	Name     string
	Position int
}

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultBoardName string
	SectionTemplates []SectionTemplate
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service is the server-side application layer: board assembly plus the two
// move operations the reorder engine calls. The move responses carry the
// authoritative order so clients can replace local state wholesale.
type Service struct {
	repo             Repository
	idGen            IDGenerator
	clock            Clock
	defaultBoardName string
	sectionTemplates []SectionTemplate
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.DefaultBoardName == "" {
		cfg.DefaultBoardName = "Board"
	}
	templates := sanitizeSectionTemplates(cfg.SectionTemplates)
	if len(templates) == 0 {
		templates = defaultSectionTemplates()
	}

	return &Service{
		repo:             repo,
		idGen:            idGen,
		clock:            clock,
		defaultBoardName: cfg.DefaultBoardName,
		sectionTemplates: templates,
	}
}

// EnsureDefaultBoard returns the first board, creating one with the
// configured section templates when none exists yet.
func (s *Service) EnsureDefaultBoard(ctx context.Context) (domain.Board, error) {
	boards, err := s.repo.ListBoards(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	if len(boards) > 0 {
		return boards[0], nil
	}
	return s.CreateBoard(ctx, s.defaultBoardName)
}

// CreateBoard creates a board seeded with the template sections.
func (s *Service) CreateBoard(ctx context.Context, name string) (domain.Board, error) {
	now := s.clock()
	board, err := domain.NewBoard(s.idGen(), name, now)
	if err != nil {
		return domain.Board{}, err
	}
	if err := s.repo.CreateBoard(ctx, board); err != nil {
		return domain.Board{}, err
	}
	for _, tmpl := range s.sectionTemplates {
		sec, err := domain.NewSection(s.idGen(), board.ID, tmpl.Name, now)
		if err != nil {
			return domain.Board{}, err
		}
		if err := board.AppendSection(sec.ID, now); err != nil {
			return domain.Board{}, err
		}
		if err := s.repo.CreateSection(ctx, sec); err != nil {
			return domain.Board{}, err
		}
	}
	if err := s.repo.SaveSectionOrder(ctx, board.ID, board.SectionOrder); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// CreateSection appends a named column to a board.
func (s *Service) CreateSection(ctx context.Context, boardID, name string) (domain.Section, error) {
	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return domain.Section{}, err
	}
	now := s.clock()
	sec, err := domain.NewSection(s.idGen(), board.ID, name, now)
	if err != nil {
		return domain.Section{}, err
	}
	if err := board.AppendSection(sec.ID, now); err != nil {
		return domain.Section{}, err
	}
	if err := s.repo.CreateSection(ctx, sec); err != nil {
		return domain.Section{}, err
	}
	if err := s.repo.SaveSectionOrder(ctx, board.ID, board.SectionOrder); err != nil {
		return domain.Section{}, err
	}
	return sec, nil
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	BoardID     string
	SectionID   string
	Title       string
	Description string
	Status      domain.Status
	Priority    domain.Priority
	DueAt       *time.Time
}

// CreateTask creates a task at the end of its section.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	sections, err := s.repo.ListSections(ctx, in.BoardID)
	if err != nil {
		return domain.Task{}, err
	}
	sec := sectionByID(sections, in.SectionID)
	if sec == nil {
		return domain.Task{}, fmt.Errorf("section %s: %w", in.SectionID, ErrNotFound)
	}

	now := s.clock()
	task, err := domain.NewTask(domain.TaskInput{
		ID:          s.idGen(),
		BoardID:     in.BoardID,
		SectionID:   sec.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueAt:       in.DueAt,
	}, now)
	if err != nil {
		return domain.Task{}, err
	}
	if err := sec.InsertTask(task.ID, len(sec.TaskIDs), now); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.SaveTaskOrder(ctx, sec.ID, sec.TaskIDs); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// BoardState is one board assembled wholesale: the full payload clients
// load at startup and reload after a failed move.
type BoardState struct {
	Board    domain.Board
	Sections []domain.Section
	Tasks    []domain.Task
}

// BoardState assembles a board with its sections in display order and all
// of their tasks.
func (s *Service) BoardState(ctx context.Context, boardID string) (BoardState, error) {
	board, err := s.repo.GetBoard(ctx, boardID)
	if err != nil {
		return BoardState{}, err
	}
	sections, err := s.repo.ListSections(ctx, boardID)
	if err != nil {
		return BoardState{}, err
	}
	tasks, err := s.repo.ListTasks(ctx, boardID)
	if err != nil {
		return BoardState{}, err
	}
	slices.SortStableFunc(sections, func(a, b domain.Section) int {
		return board.SectionIndex(a.ID) - board.SectionIndex(b.ID)
	})
	return BoardState{Board: board, Sections: sections, Tasks: tasks}, nil
}

// MoveTaskInput holds input values for task move operations. FromSectionID
// and BoardID are optional caller hints; the task's persisted location wins,
// and a contradicting hint fails the move.
type MoveTaskInput struct {
	TaskID        string
	FromSectionID string
	ToSectionID   string
	BoardID       string
	NewIndex      int
}

// MoveTask relocates a task to an index in a target section and returns the
// updated task together with every section whose order changed.
func (s *Service) MoveTask(ctx context.Context, in MoveTaskInput) (domain.Task, []domain.Section, error) {
	task, err := s.repo.GetTask(ctx, strings.TrimSpace(in.TaskID))
	if err != nil {
		return domain.Task{}, nil, err
	}
	if in.FromSectionID != "" && in.FromSectionID != task.SectionID {
		return domain.Task{}, nil, fmt.Errorf("task %s is in section %s, not %s: %w",
			task.ID, task.SectionID, in.FromSectionID, ErrSectionMismatch)
	}
	if in.BoardID != "" && in.BoardID != task.BoardID {
		return domain.Task{}, nil, fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}

	sections, err := s.repo.ListSections(ctx, task.BoardID)
	if err != nil {
		return domain.Task{}, nil, err
	}
	src := sectionByID(sections, task.SectionID)
	dst := sectionByID(sections, strings.TrimSpace(in.ToSectionID))
	if src == nil {
		return domain.Task{}, nil, fmt.Errorf("section %s: %w", task.SectionID, ErrNotFound)
	}
	if dst == nil {
		return domain.Task{}, nil, fmt.Errorf("section %s: %w", in.ToSectionID, ErrNotFound)
	}

	now := s.clock()
	if err := domain.MoveTaskBetween(src, dst, &task, in.NewIndex, now); err != nil {
		return domain.Task{}, nil, err
	}

	if err := s.repo.SaveTaskOrder(ctx, src.ID, src.TaskIDs); err != nil {
		return domain.Task{}, nil, err
	}
	changed := []domain.Section{*src}
	if dst.ID != src.ID {
		if err := s.repo.SaveTaskOrder(ctx, dst.ID, dst.TaskIDs); err != nil {
			return domain.Task{}, nil, err
		}
		changed = append(changed, *dst)
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, nil, err
	}
	return task, changed, nil
}

// MoveSection moves a column to a new index and returns the authoritative
// section order.
func (s *Service) MoveSection(ctx context.Context, boardID, sectionID string, newIndex int) ([]string, error) {
	board, err := s.repo.GetBoard(ctx, strings.TrimSpace(boardID))
	if err != nil {
		return nil, err
	}
	if err := board.MoveSection(strings.TrimSpace(sectionID), newIndex, s.clock()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveSectionOrder(ctx, board.ID, board.SectionOrder); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBoard(ctx, board); err != nil {
		return nil, err
	}
	return board.SectionOrder, nil
}

func sectionByID(sections []domain.Section, id string) *domain.Section {
	for i := range sections {
		if sections[i].ID == id {
			return &sections[i]
		}
	}
	return nil
}

func sanitizeSectionTemplates(in []SectionTemplate) []SectionTemplate {
	out := make([]SectionTemplate, 0, len(in))
	for idx, tmpl := range in {
		tmpl.Name = strings.TrimSpace(tmpl.Name)
		if tmpl.Name == "" {
			continue
		}
		if tmpl.Position < 0 {
			tmpl.Position = idx
		}
		out = append(out, tmpl)
	}
	slices.SortStableFunc(out, func(a, b SectionTemplate) int {
		return a.Position - b.Position
	})
	return out
}

func defaultSectionTemplates() []SectionTemplate {
	return []SectionTemplate{
		{Name: "To Do", Position: 0},
		{Name: "In Progress", Position: 1},
		{Name: "Done", Position: 2},
	}
}
