// Package httpapi provides the REST HTTP adapter for the board move API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soltrom/flytt/internal/app"
	"github.com/soltrom/flytt/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// ErrInvalidRequest marks malformed or unparseable request payloads.
var ErrInvalidRequest = errors.New("invalid request")

// Handler serves the board state and move endpoints.
type Handler struct {
	svc *app.Service
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the application service.
func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP routes one request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch {
	case strings.HasPrefix(path, "tasks/"):
		taskID, ok := resolveTaskMovePath(path)
		if !ok {
			writeNotFound(w)
			return
		}
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMoveTask(w, r, taskID)
	case strings.HasPrefix(path, "boards/"):
		if boardID, sectionID, ok := resolveSectionMovePath(path); ok {
			if r.Method != http.MethodPost {
				writeMethodNotAllowed(w, http.MethodPost)
				return
			}
			h.handleMoveSection(w, r, boardID, sectionID)
			return
		}
		if boardID, ok := resolveBoardPath(path); ok {
			if r.Method != http.MethodGet {
				writeMethodNotAllowed(w, http.MethodGet)
				return
			}
			h.handleBoardState(w, r, boardID)
			return
		}
		writeNotFound(w)
	default:
		writeNotFound(w)
	}
}

type moveTaskRequest struct {
	ToSectionID   string `json:"toSectionId"`
	NewIndex      int    `json:"newIndex"`
	FromSectionID string `json:"fromSectionId,omitempty"`
	BoardID       string `json:"boardId,omitempty"`
}

type moveSectionRequest struct {
	NewIndex int `json:"newIndex"`
}

// handleMoveTask serves POST `/tasks/{id}/move`.
func (h *Handler) handleMoveTask(w http.ResponseWriter, r *http.Request, taskID string) {
	var req moveTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if strings.TrimSpace(req.ToSectionID) == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "toSectionId is required",
		})
		return
	}

	task, sections, err := h.svc.MoveTask(r.Context(), app.MoveTaskInput{
		TaskID:        taskID,
		FromSectionID: req.FromSectionID,
		ToSectionID:   req.ToSectionID,
		BoardID:       req.BoardID,
		NewIndex:      req.NewIndex,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}

	resp := map[string]any{"task": taskToPayload(task)}
	secs := make([]sectionPayload, 0, len(sections))
	for _, sec := range sections {
		secs = append(secs, sectionToPayload(sec))
	}
	resp["sections"] = secs
	writeJSON(w, http.StatusOK, resp)
}

// handleMoveSection serves POST `/boards/{boardId}/sections/{sectionId}/move`.
func (h *Handler) handleMoveSection(w http.ResponseWriter, r *http.Request, boardID, sectionID string) {
	var req moveSectionRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	order, err := h.svc.MoveSection(r.Context(), boardID, sectionID, req.NewIndex)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sectionOrder": order})
}

// handleBoardState serves GET `/boards/{id}`: the full-board payload used on
// startup and by the self-healing reload path.
func (h *Handler) handleBoardState(w http.ResponseWriter, r *http.Request, boardID string) {
	state, err := h.svc.BoardState(r.Context(), boardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	sections := make([]sectionPayload, 0, len(state.Sections))
	for _, sec := range state.Sections {
		sections = append(sections, sectionToPayload(sec))
	}
	tasks := make([]taskPayload, 0, len(state.Tasks))
	for _, task := range state.Tasks {
		tasks = append(tasks, taskToPayload(task))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"board":    boardToPayload(state.Board),
		"sections": sections,
		"tasks":    tasks,
	})
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

func boardToPayload(b domain.Board) boardPayload {
	order := b.SectionOrder
	if order == nil {
		order = []string{}
	}
	return boardPayload{
		ID:           b.ID,
		Name:         b.Name,
		SectionOrder: order,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func sectionToPayload(s domain.Section) sectionPayload {
	taskIDs := s.TaskIDs
	if taskIDs == nil {
		taskIDs = []string{}
	}
	return sectionPayload{
		ID:        s.ID,
		BoardID:   s.BoardID,
		Name:      s.Name,
		TaskIDs:   taskIDs,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func taskToPayload(t domain.Task) taskPayload {
	return taskPayload{
		ID:          t.ID,
		BoardID:     t.BoardID,
		SectionID:   t.SectionID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueAt:       t.DueAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// resolveTaskMovePath parses `tasks/{id}/move` and returns `{id}`.
func resolveTaskMovePath(path string) (string, bool) {
	id := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(path, "tasks/"), "/move"))
	if id == "" || strings.Contains(id, "/") || !strings.HasSuffix(path, "/move") {
		return "", false
	}
	return id, true
}

// resolveSectionMovePath parses `boards/{boardId}/sections/{sectionId}/move`.
func resolveSectionMovePath(path string) (boardID, sectionID string, ok bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 5 || parts[0] != "boards" || parts[2] != "sections" || parts[4] != "move" {
		return "", "", false
	}
	boardID = strings.TrimSpace(parts[1])
	sectionID = strings.TrimSpace(parts[3])
	if boardID == "" || sectionID == "" {
		return "", "", false
	}
	return boardID, sectionID, true
}

// resolveBoardPath parses `boards/{id}` and returns `{id}`.
func resolveBoardPath(path string) (string, bool) {
	id := strings.TrimSpace(strings.TrimPrefix(path, "boards/"))
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, app.ErrNotFound), errors.Is(err, domain.ErrUnknownSection), errors.Is(err, domain.ErrUnknownTask):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrSectionMismatch):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "section_mismatch",
			Message: err.Error(),
			Hint:    "Reload the board and retry the move.",
		})
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidSectionID),
		errors.Is(err, domain.ErrInvalidID):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeNotFound writes a structured 404 response.
func writeNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, APIError{
		Code:    "not_found",
		Message: "endpoint not found",
	})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
