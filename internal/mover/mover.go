// Package mover is the thin layer between a completed drop and the backend:
// it issues the move call, applies the confirmed mutation to the in-memory
// store (authoritative replace when the server returns one, local splice
// otherwise), and on any failure falls back to a full board reload plus a
// transient user-visible notification rather than attempting a rollback.
package mover

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/soltrom/flytt/internal/domain"
	"github.com/soltrom/flytt/internal/reorder"
	"github.com/soltrom/flytt/internal/store"
)

// ErrMoveInFlight rejects a second move for an entity whose previous request
// has not resolved yet. Overlapping requests for one entity would race on
// the backend and leave the local splice unsound, so they are refused
// outright rather than queued or superseded.
var ErrMoveInFlight = errors.New("move already in flight for this entity")

// TaskMoveRequest is the payload of a task move call. FromSectionID and
// BoardID are hints; the backend's own record of the task wins.
type TaskMoveRequest struct {
	TaskID        string
	FromSectionID string
	ToSectionID   string
	BoardID       string
	NewIndex      int
}

// SectionMoveRequest is the payload of a section move call.
type SectionMoveRequest struct {
	BoardID   string
	SectionID string
	NewIndex  int
}

// TaskMoveResult carries a task move response. When Authoritative is set the
// server returned the updated task and sections and local state must be
// replaced wholesale; otherwise the caller performs the equivalent splice.
type TaskMoveResult struct {
	Authoritative bool
	Task          domain.Task
	Sections      []domain.Section
}

// SectionMoveResult carries a section move response, with the authoritative
// section order when the server returned one.
type SectionMoveResult struct {
	Authoritative bool
	SectionOrder  []string
}

// Backend is the move API the orchestrator consumes. BoardState is the
// reload path: full authoritative state for self-healing after a failure.
type Backend interface {
	MoveTask(ctx context.Context, req TaskMoveRequest) (TaskMoveResult, error)
	MoveSection(ctx context.Context, req SectionMoveRequest) (SectionMoveResult, error)
	BoardState(ctx context.Context, boardID string) (store.Snapshot, error)
}

// Notifier surfaces a transient user-visible message.
type Notifier func(msg string)

// Orchestrator tracks in-flight moves and reconciles responses into the
// store. Begin, Resolve, and ApplySnapshot must run on the UI update loop;
// only Move.Execute and FetchSnapshot are safe to call from a command
// goroutine. That split keeps all store mutation single-threaded.
type Orchestrator struct {
	store    *store.Store
	backend  Backend
	log      *log.Logger
	notify   Notifier
	inFlight map[string]struct{}
}

// Option tunes an orchestrator.
type Option func(*Orchestrator)

// WithNotifier installs the transient notification hook.
func WithNotifier(fn Notifier) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.notify = fn
		}
	}
}

// New constructs an orchestrator.
func New(st *store.Store, backend Backend, logger *log.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	o := &Orchestrator{
		store:    st,
		backend:  backend,
		log:      logger,
		notify:   func(string) {},
		inFlight: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Move is one registered move awaiting its backend call.
type Move struct {
	intent  reorder.Intent
	backend Backend
}

// Outcome is the result of an executed move, fed back into Resolve.
type Outcome struct {
	Intent reorder.Intent
	Err    error

	task    TaskMoveResult
	section SectionMoveResult
}

// Begin registers a drop intent. It fails with ErrMoveInFlight when the
// entity already has an unresolved move; the caller surfaces that as a
// transient notice and drops the gesture.
func (o *Orchestrator) Begin(intent reorder.Intent) (*Move, error) {
	if _, busy := o.inFlight[intent.EntityID]; busy {
		o.notify("hold on, previous move still saving")
		return nil, fmt.Errorf("%s %s: %w", intent.Kind, intent.EntityID, ErrMoveInFlight)
	}
	o.inFlight[intent.EntityID] = struct{}{}
	return &Move{intent: intent, backend: o.backend}, nil
}

// Execute performs the backend call and packages the outcome. Safe to run
// off the UI loop; it touches no shared state.
func (m *Move) Execute(ctx context.Context) Outcome {
	out := Outcome{Intent: m.intent}
	switch m.intent.Kind {
	case reorder.KindTask:
		out.task, out.Err = m.backend.MoveTask(ctx, TaskMoveRequest{
			TaskID:        m.intent.EntityID,
			FromSectionID: m.intent.SourceID,
			ToSectionID:   m.intent.TargetID,
			NewIndex:      m.intent.Index,
		})
	case reorder.KindSection:
		out.section, out.Err = m.backend.MoveSection(ctx, SectionMoveRequest{
			BoardID:   m.intent.SourceID,
			SectionID: m.intent.EntityID,
			NewIndex:  m.intent.Index,
		})
	default:
		out.Err = fmt.Errorf("unknown move kind %q", m.intent.Kind)
	}
	return out
}

// Resolve applies an outcome to local state and clears the in-flight mark.
// It reports whether the caller must run the reload path: any backend
// failure, and any local apply that detects divergence, self-heals via
// resynchronization instead of rollback.
func (o *Orchestrator) Resolve(out Outcome) bool {
	delete(o.inFlight, out.Intent.EntityID)

	if out.Err != nil {
		o.log.Error("move rejected, reloading board",
			"kind", out.Intent.Kind, "entity", out.Intent.EntityID, "err", out.Err)
		o.notify("move failed, reloading board")
		return true
	}

	var err error
	switch out.Intent.Kind {
	case reorder.KindTask:
		err = o.applyTask(out)
	case reorder.KindSection:
		err = o.applySection(out)
	}
	if err != nil {
		o.log.Error("confirmed move failed to apply locally, reloading board",
			"kind", out.Intent.Kind, "entity", out.Intent.EntityID, "err", err)
		o.notify("board out of sync, reloading")
		return true
	}
	return false
}

func (o *Orchestrator) applyTask(out Outcome) error {
	if out.task.Authoritative {
		return o.store.ReplaceTaskAndSections(out.task.Task, out.task.Sections)
	}
	return o.store.ApplyTaskMove(out.Intent.EntityID, out.Intent.SourceID, out.Intent.TargetID, out.Intent.Index)
}

func (o *Orchestrator) applySection(out Outcome) error {
	if out.section.Authoritative {
		return o.store.ReplaceSectionOrder(out.section.SectionOrder)
	}
	return o.store.ApplySectionMove(out.Intent.EntityID, out.Intent.Index)
}

// RequestTaskMove performs one complete task move: register, backend call,
// reconciliation. It is the programmatic entry point for callers that have
// no UI loop to split the phases over, and must run on the goroutine that
// owns the store. reload reports whether the caller should refetch the
// board via FetchSnapshot/ApplySnapshot.
func (o *Orchestrator) RequestTaskMove(ctx context.Context, taskID, fromSectionID, toSectionID string, index int) (reload bool, err error) {
	mv, err := o.Begin(reorder.Intent{
		Kind:     reorder.KindTask,
		EntityID: taskID,
		SourceID: fromSectionID,
		TargetID: toSectionID,
		Index:    index,
	})
	if err != nil {
		return false, err
	}
	out := mv.Execute(ctx)
	return o.Resolve(out), out.Err
}

// RequestSectionMove performs one complete section move, with the same
// contract as RequestTaskMove.
func (o *Orchestrator) RequestSectionMove(ctx context.Context, sectionID string, index int) (reload bool, err error) {
	mv, err := o.Begin(reorder.Intent{
		Kind:     reorder.KindSection,
		EntityID: sectionID,
		SourceID: o.store.Board().ID,
		Index:    index,
	})
	if err != nil {
		return false, err
	}
	out := mv.Execute(ctx)
	return o.Resolve(out), out.Err
}

// InFlight reports whether an entity has an unresolved move.
func (o *Orchestrator) InFlight(entityID string) bool {
	_, busy := o.inFlight[entityID]
	return busy
}

// FetchSnapshot pulls the full authoritative board state. Safe to run off
// the UI loop.
func (o *Orchestrator) FetchSnapshot(ctx context.Context, boardID string) (store.Snapshot, error) {
	return o.backend.BoardState(ctx, boardID)
}

// ApplySnapshot swaps the reloaded state in on the UI loop.
func (o *Orchestrator) ApplySnapshot(snap store.Snapshot) error {
	return o.store.Load(snap)
}
