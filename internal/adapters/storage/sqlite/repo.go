package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soltrom/flytt/internal/app"
	"github.com/soltrom/flytt/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository persists boards, sections, and tasks. Order is stored in
// position columns; Board.SectionOrder and Section.TaskIDs are derived from
// them on read, and the Save*Order methods rewrite them wholesale.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sections (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			section_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			due_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE,
			FOREIGN KEY(section_id) REFERENCES sections(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sections_board_position ON sections(board_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_section_position ON tasks(section_id, position);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateBoard creates board.
func (r *Repository) CreateBoard(ctx context.Context, b domain.Board) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO boards (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, b.ID, b.Name, ts(b.CreatedAt), ts(b.UpdatedAt))
	return err
}

// UpdateBoard updates board.
func (r *Repository) UpdateBoard(ctx context.Context, b domain.Board) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE boards SET name = ?, updated_at = ? WHERE id = ?
	`, b.Name, ts(b.UpdatedAt), b.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetBoard gets board with its section order derived from positions.
func (r *Repository) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM boards WHERE id = ?
	`, id)
	board, err := scanBoard(row)
	if err != nil {
		return domain.Board{}, err
	}
	board.SectionOrder, err = r.sectionOrder(ctx, board.ID)
	if err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// ListBoards lists boards in creation order.
func (r *Repository) ListBoards(ctx context.Context) ([]domain.Board, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM boards ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, board)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].SectionOrder, err = r.sectionOrder(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveSectionOrder rewrites a board's section positions wholesale.
func (r *Repository) SaveSectionOrder(ctx context.Context, boardID string, order []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, sectionID := range order {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sections SET position = ? WHERE id = ? AND board_id = ?
		`, i, sectionID, boardID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateSection creates a section at the tail of its board.
func (r *Repository) CreateSection(ctx context.Context, s domain.Section) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sections (id, board_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, (SELECT COUNT(*) FROM sections WHERE board_id = ?), ?, ?)
	`, s.ID, s.BoardID, s.Name, s.BoardID, ts(s.CreatedAt), ts(s.UpdatedAt))
	return err
}

// UpdateSection updates section.
func (r *Repository) UpdateSection(ctx context.Context, s domain.Section) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sections SET name = ?, updated_at = ? WHERE id = ?
	`, s.Name, ts(s.UpdatedAt), s.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// ListSections lists a board's sections in display order, with each
// section's task order derived from task positions.
func (r *Repository) ListSections(ctx context.Context, boardID string) ([]domain.Section, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, board_id, name, created_at, updated_at
		FROM sections WHERE board_id = ? ORDER BY position, id
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Section
	for rows.Next() {
		var sec domain.Section
		var createdAt, updatedAt string
		if err := rows.Scan(&sec.ID, &sec.BoardID, &sec.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sec.CreatedAt = parseTS(createdAt)
		sec.UpdatedAt = parseTS(updatedAt)
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	taskRows, err := r.db.QueryContext(ctx, `
		SELECT id, section_id FROM tasks WHERE board_id = ? ORDER BY position, id
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer taskRows.Close()

	bySection := map[string][]string{}
	for taskRows.Next() {
		var taskID, sectionID string
		if err := taskRows.Scan(&taskID, &sectionID); err != nil {
			return nil, err
		}
		bySection[sectionID] = append(bySection[sectionID], taskID)
	}
	if err := taskRows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].TaskIDs = bySection[out[i].ID]
	}
	return out, nil
}

// SaveTaskOrder rewrites a section's task positions, reassigning each task
// to the section in the same statement so cross-section moves are atomic.
func (r *Repository) SaveTaskOrder(ctx context.Context, sectionID string, taskIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, taskID := range taskIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET section_id = ?, position = ? WHERE id = ?
		`, sectionID, i, taskID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateTask creates a task at the tail of its section.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, board_id, section_id, position, title, description,
			status, priority, due_at, created_at, updated_at)
		VALUES (?, ?, ?, (SELECT COUNT(*) FROM tasks WHERE section_id = ?), ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.BoardID, t.SectionID, t.SectionID, t.Title, t.Description,
		string(t.Status), string(t.Priority), nullableTS(t.DueAt), ts(t.CreatedAt), ts(t.UpdatedAt))
	return err
}

// UpdateTask updates a task's attributes and section back-reference.
// Position is owned by SaveTaskOrder and left alone here.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET section_id = ?, title = ?, description = ?, status = ?,
			priority = ?, due_at = ?, updated_at = ?
		WHERE id = ?
	`, t.SectionID, t.Title, t.Description, string(t.Status), string(t.Priority),
		nullableTS(t.DueAt), ts(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetTask gets task.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, board_id, section_id, title, description, status, priority,
			due_at, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	return scanTask(row)
}

// ListTasks lists a board's tasks in section position order.
func (r *Repository) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, board_id, section_id, title, description, status, priority,
			due_at, created_at, updated_at
		FROM tasks WHERE board_id = ? ORDER BY section_id, position, id
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// sectionOrder derives a board's section order from positions.
func (r *Repository) sectionOrder(ctx context.Context, boardID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM sections WHERE board_id = ? ORDER BY position, id
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var order []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		order = append(order, id)
	}
	return order, rows.Err()
}

// scanner abstracts over sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanBoard handles scan board.
func scanBoard(s scanner) (domain.Board, error) {
	var board domain.Board
	var createdAt, updatedAt string
	if err := s.Scan(&board.ID, &board.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, app.ErrNotFound
		}
		return domain.Board{}, err
	}
	board.CreatedAt = parseTS(createdAt)
	board.UpdatedAt = parseTS(updatedAt)
	return board, nil
}

// scanTask handles scan task.
func scanTask(s scanner) (domain.Task, error) {
	var task domain.Task
	var status, priority string
	var dueAt sql.NullString
	var createdAt, updatedAt string
	err := s.Scan(&task.ID, &task.BoardID, &task.SectionID, &task.Title, &task.Description,
		&status, &priority, &dueAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	task.Status = domain.Status(status)
	task.Priority = domain.Priority(priority)
	task.DueAt = parseNullTS(dueAt)
	task.CreatedAt = parseTS(createdAt)
	task.UpdatedAt = parseTS(updatedAt)
	return task, nil
}

// translateNoRows maps zero-row updates to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	parsed := parseTS(v.String)
	return &parsed
}
