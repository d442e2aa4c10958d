package mover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soltrom/flytt/internal/domain"
	"github.com/soltrom/flytt/internal/store"
)

// ErrBackend marks any failed backend exchange. Every non-2xx status is
// treated uniformly: the caller's recovery is a full reload either way, so
// status code distinctions carry no signal here.
var ErrBackend = errors.New("backend request failed")

// HTTPBackend talks to a remote board server over its JSON move API.
type HTTPBackend struct {
	base   string
	client *http.Client
	log    *log.Logger
}

// NewHTTPBackend constructs a backend for the given base URL.
func NewHTTPBackend(baseURL string, client *http.Client, logger *log.Logger) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPBackend{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
		log:    logger,
	}
}

type taskMoveBody struct {
	ToSectionID   string `json:"toSectionId"`
	NewIndex      int    `json:"newIndex"`
	FromSectionID string `json:"fromSectionId,omitempty"`
	BoardID       string `json:"boardId,omitempty"`
}

type sectionMoveBody struct {
	NewIndex int `json:"newIndex"`
}

type boardPayload struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SectionOrder []string  `json:"sectionOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type sectionPayload struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	Name      string    `json:"name"`
	TaskIDs   []string  `json:"taskIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type taskPayload struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"boardId"`
	SectionID   string     `json:"sectionId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type taskMoveResponse struct {
	Task     *taskPayload     `json:"task,omitempty"`
	Sections []sectionPayload `json:"sections,omitempty"`
}

type sectionMoveResponse struct {
	SectionOrder []string `json:"sectionOrder,omitempty"`
}

type boardStateResponse struct {
	Board    boardPayload     `json:"board"`
	Sections []sectionPayload `json:"sections"`
	Tasks    []taskPayload    `json:"tasks"`
}

// MoveTask posts a task move. A response carrying the updated task is
// authoritative; an empty acknowledgement leaves the splice to the caller.
func (b *HTTPBackend) MoveTask(ctx context.Context, req TaskMoveRequest) (TaskMoveResult, error) {
	path := fmt.Sprintf("/tasks/%s/move", url.PathEscape(req.TaskID))
	var resp taskMoveResponse
	err := b.do(ctx, http.MethodPost, path, taskMoveBody{
		ToSectionID:   req.ToSectionID,
		NewIndex:      req.NewIndex,
		FromSectionID: req.FromSectionID,
		BoardID:       req.BoardID,
	}, &resp)
	if err != nil {
		return TaskMoveResult{}, err
	}
	if resp.Task == nil {
		return TaskMoveResult{}, nil
	}
	out := TaskMoveResult{Authoritative: true, Task: resp.Task.domain()}
	for _, sec := range resp.Sections {
		out.Sections = append(out.Sections, sec.domain())
	}
	return out, nil
}

// MoveSection posts a section move. A response carrying sectionOrder is
// authoritative; an empty acknowledgement leaves the splice to the caller.
func (b *HTTPBackend) MoveSection(ctx context.Context, req SectionMoveRequest) (SectionMoveResult, error) {
	path := fmt.Sprintf("/boards/%s/sections/%s/move",
		url.PathEscape(req.BoardID), url.PathEscape(req.SectionID))
	var resp sectionMoveResponse
	if err := b.do(ctx, http.MethodPost, path, sectionMoveBody{NewIndex: req.NewIndex}, &resp); err != nil {
		return SectionMoveResult{}, err
	}
	if resp.SectionOrder == nil {
		return SectionMoveResult{}, nil
	}
	return SectionMoveResult{Authoritative: true, SectionOrder: resp.SectionOrder}, nil
}

// BoardState fetches the full board for initial load and self-healing
// reloads.
func (b *HTTPBackend) BoardState(ctx context.Context, boardID string) (store.Snapshot, error) {
	path := fmt.Sprintf("/boards/%s", url.PathEscape(boardID))
	var resp boardStateResponse
	if err := b.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return store.Snapshot{}, err
	}
	snap := store.Snapshot{
		Board: domain.Board{
			ID:           resp.Board.ID,
			Name:         resp.Board.Name,
			SectionOrder: resp.Board.SectionOrder,
			CreatedAt:    resp.Board.CreatedAt,
			UpdatedAt:    resp.Board.UpdatedAt,
		},
	}
	for _, sec := range resp.Sections {
		snap.Sections = append(snap.Sections, sec.domain())
	}
	for _, task := range resp.Tasks {
		snap.Tasks = append(snap.Tasks, task.domain())
	}
	return snap, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.base+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(ErrBackend, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		b.log.Warn("backend rejected request", "method", method, "path", path, "status", resp.Status)
		return fmt.Errorf("%s %s: status %s: %w", method, path, resp.Status, ErrBackend)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty 2xx body: a generic acknowledgement.
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (p sectionPayload) domain() domain.Section {
	return domain.Section{
		ID:        p.ID,
		BoardID:   p.BoardID,
		Name:      p.Name,
		TaskIDs:   p.TaskIDs,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (p taskPayload) domain() domain.Task {
	return domain.Task{
		ID:          p.ID,
		BoardID:     p.BoardID,
		SectionID:   p.SectionID,
		Title:       p.Title,
		Description: p.Description,
		Status:      domain.Status(p.Status),
		Priority:    domain.Priority(p.Priority),
		DueAt:       p.DueAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
