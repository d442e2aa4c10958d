// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the
// board service.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/soltrom/flytt/internal/app"
	"github.com/soltrom/flytt/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing board-state and move tools.
func NewHandler(cfg Config, svc *app.Service) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardStateTool(mcpSrv, svc)
	registerMoveTaskTool(mcpSrv, svc)
	registerMoveSectionTool(mcpSrv, svc)
	registerCreateTaskTool(mcpSrv, svc)
	registerCreateSectionTool(mcpSrv, svc)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "flytt"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardStateTool registers the `flytt.board_state` tool.
func registerBoardStateTool(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"flytt.board_state",
			mcp.WithDescription("Return the full authoritative state of one board: board metadata, ordered sections with task ids, and all tasks."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			state, err := svc.BoardState(ctx, boardID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(toBoardStatePayload(state))
			if err != nil {
				return nil, fmt.Errorf("encode board_state result: %w", err)
			}
			return result, nil
		},
	)
}

// registerMoveTaskTool registers the `flytt.move_task` tool.
func registerMoveTaskTool(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"flytt.move_task",
			mcp.WithDescription("Move one task to an index inside a target section. The persisted task location is authoritative; from_section_id is an optional consistency hint."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("to_section_id", mcp.Required(), mcp.Description("Target section identifier")),
			mcp.WithNumber("new_index", mcp.Required(), mcp.Description("Zero-based target index inside the section")),
			mcp.WithString("from_section_id", mcp.Description("Optional source-section consistency hint")),
			mcp.WithString("board_id", mcp.Description("Optional board consistency hint")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			toSectionID, err := req.RequireString("to_section_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			newIndex, err := req.RequireInt("new_index")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, sections, err := svc.MoveTask(ctx, app.MoveTaskInput{
				TaskID:        taskID,
				FromSectionID: req.GetString("from_section_id", ""),
				ToSectionID:   toSectionID,
				BoardID:       req.GetString("board_id", ""),
				NewIndex:      newIndex,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			sectionPayloads := make([]sectionPayload, 0, len(sections))
			for _, section := range sections {
				sectionPayloads = append(sectionPayloads, toSectionPayload(section))
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"task":     toTaskPayload(task),
				"sections": sectionPayloads,
			})
			if err != nil {
				return nil, fmt.Errorf("encode move_task result: %w", err)
			}
			return result, nil
		},
	)
}

// registerMoveSectionTool registers the `flytt.move_section` tool.
func registerMoveSectionTool(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"flytt.move_section",
			mcp.WithDescription("Move one section to a new index inside its board and return the authoritative section order."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("section_id", mcp.Required(), mcp.Description("Section identifier")),
			mcp.WithNumber("new_index", mcp.Required(), mcp.Description("Zero-based target index inside the board")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			sectionID, err := req.RequireString("section_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			newIndex, err := req.RequireInt("new_index")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			order, err := svc.MoveSection(ctx, boardID, sectionID, newIndex)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"sectionOrder": order,
			})
			if err != nil {
				return nil, fmt.Errorf("encode move_section result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCreateTaskTool registers the `flytt.create_task` tool.
func registerCreateTaskTool(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"flytt.create_task",
			mcp.WithDescription("Create one task at the tail of a section."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("section_id", mcp.Required(), mcp.Description("Section identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Optional markdown description")),
			mcp.WithString("priority", mcp.Description("Task priority"), mcp.Enum("low", "medium", "high")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			sectionID, err := req.RequireString("section_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := svc.CreateTask(ctx, app.CreateTaskInput{
				BoardID:     boardID,
				SectionID:   sectionID,
				Title:       title,
				Description: req.GetString("description", ""),
				Priority:    domain.Priority(req.GetString("priority", string(domain.PriorityMedium))),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(toTaskPayload(task))
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCreateSectionTool registers the `flytt.create_section` tool.
func registerCreateSectionTool(srv *mcpserver.MCPServer, svc *app.Service) {
	srv.AddTool(
		mcp.NewTool(
			"flytt.create_section",
			mcp.WithDescription("Create one empty section at the tail of a board."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Section display name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			section, err := svc.CreateSection(ctx, boardID, name)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(toSectionPayload(section))
			if err != nil {
				return nil, fmt.Errorf("encode create_section result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrNotFound),
		errors.Is(err, domain.ErrUnknownSection),
		errors.Is(err, domain.ErrUnknownTask):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, app.ErrSectionMismatch):
		return mcp.NewToolResultError("stale_state: " + err.Error())
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidSectionID):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

// boardPayload mirrors the REST wire shape so both surfaces stay interchangeable.
type boardPayload struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SectionOrder []string `json:"sectionOrder"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type sectionPayload struct {
	ID        string   `json:"id"`
	BoardID   string   `json:"boardId"`
	Name      string   `json:"name"`
	TaskIDs   []string `json:"taskIds"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

type taskPayload struct {
	ID          string `json:"id"`
	BoardID     string `json:"boardId"`
	SectionID   string `json:"sectionId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueAt       string `json:"dueAt,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type boardStatePayload struct {
	Board    boardPayload     `json:"board"`
	Sections []sectionPayload `json:"sections"`
	Tasks    []taskPayload    `json:"tasks"`
}

func toBoardPayload(b domain.Board) boardPayload {
	order := b.SectionOrder
	if order == nil {
		order = []string{}
	}
	return boardPayload{
		ID:           b.ID,
		Name:         b.Name,
		SectionOrder: order,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:    b.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toSectionPayload(s domain.Section) sectionPayload {
	taskIDs := s.TaskIDs
	if taskIDs == nil {
		taskIDs = []string{}
	}
	return sectionPayload{
		ID:        s.ID,
		BoardID:   s.BoardID,
		Name:      s.Name,
		TaskIDs:   taskIDs,
		CreatedAt: s.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toTaskPayload(t domain.Task) taskPayload {
	payload := taskPayload{
		ID:          t.ID,
		BoardID:     t.BoardID,
		SectionID:   t.SectionID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if t.DueAt != nil {
		payload.DueAt = t.DueAt.Format(time.RFC3339Nano)
	}
	return payload
}

func toBoardStatePayload(state app.BoardState) boardStatePayload {
	sections := make([]sectionPayload, 0, len(state.Sections))
	for _, section := range state.Sections {
		sections = append(sections, toSectionPayload(section))
	}
	tasks := make([]taskPayload, 0, len(state.Tasks))
	for _, task := range state.Tasks {
		tasks = append(tasks, toTaskPayload(task))
	}
	return boardStatePayload{
		Board:    toBoardPayload(state.Board),
		Sections: sections,
		Tasks:    tasks,
	}
}
