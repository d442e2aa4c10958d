package mover

import (
	"context"

	"github.com/soltrom/flytt/internal/app"
	"github.com/soltrom/flytt/internal/store"
)

// LocalBackend serves moves straight from the in-process application
// service, for running against a local database without a server. Its
// responses are always authoritative.
type LocalBackend struct {
	svc *app.Service
}

// NewLocalBackend wraps an application service.
func NewLocalBackend(svc *app.Service) *LocalBackend {
	return &LocalBackend{svc: svc}
}

func (b *LocalBackend) MoveTask(ctx context.Context, req TaskMoveRequest) (TaskMoveResult, error) {
	task, sections, err := b.svc.MoveTask(ctx, app.MoveTaskInput{
		TaskID:        req.TaskID,
		FromSectionID: req.FromSectionID,
		ToSectionID:   req.ToSectionID,
		BoardID:       req.BoardID,
		NewIndex:      req.NewIndex,
	})
	if err != nil {
		return TaskMoveResult{}, err
	}
	return TaskMoveResult{Authoritative: true, Task: task, Sections: sections}, nil
}

func (b *LocalBackend) MoveSection(ctx context.Context, req SectionMoveRequest) (SectionMoveResult, error) {
	order, err := b.svc.MoveSection(ctx, req.BoardID, req.SectionID, req.NewIndex)
	if err != nil {
		return SectionMoveResult{}, err
	}
	return SectionMoveResult{Authoritative: true, SectionOrder: order}, nil
}

func (b *LocalBackend) BoardState(ctx context.Context, boardID string) (store.Snapshot, error) {
	state, err := b.svc.BoardState(ctx, boardID)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{
		Board:    state.Board,
		Sections: state.Sections,
		Tasks:    state.Tasks,
	}, nil
}
