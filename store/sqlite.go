package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"skladtrack/models"
)

// SQLiteStore implements TaskStore, HistoryLedger, ReceptionStore and
// FilterStore on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and initializes the
// schema. Pass ":memory:" for an in-memory database, used by tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The engine runs short request-scoped transactions; a single connection
	// avoids SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'in-development',
		priority TEXT NOT NULL DEFAULT '',
		responsible TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		attachments TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT,
		archived INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks(archived);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	-- task_id is a non-owning reference: no foreign key, history must
	-- survive task deletion.
	CREATE TABLE IF NOT EXISTS task_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		details TEXT NOT NULL,
		field_name TEXT NOT NULL DEFAULT '',
		old_value TEXT NOT NULL DEFAULT '',
		new_value TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT 'system',
		timestamp TEXT NOT NULL,
		can_revert INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_history_task ON task_history(task_id);

	CREATE TABLE IF NOT EXISTS receptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		order_number TEXT NOT NULL,
		designation TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		route_card_number TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'accepted',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS saved_filters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// === time serialization ===

// Timestamps are stored as RFC3339 UTC strings, which keeps lexicographic
// and chronological order aligned for range predicates.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// === TaskStore ===

const taskColumns = `id, number, name, description, status, priority, responsible,
	due_date, attachments, created_at, updated_at, completed_at, archived`

func scanTask(scan func(dest ...any) error) (models.Task, error) {
	var t models.Task
	var dueDate, completedAt sql.NullString
	var createdAt, updatedAt string
	var archived int
	err := scan(&t.ID, &t.Number, &t.Name, &t.Description, &t.Status, &t.Priority,
		&t.Responsible, &dueDate, &t.Attachments, &createdAt, &updatedAt, &completedAt, &archived)
	if err != nil {
		return models.Task{}, err
	}
	t.DueDate = parseNullTime(dueDate)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	t.CompletedAt = parseNullTime(completedAt)
	t.Archived = archived != 0
	return t, nil
}

// CreateTask inserts the task and assigns its ID. The UNIQUE index on number
// is the source of truth for uniqueness; a constraint violation maps to
// ErrConflict with no partial write.
func (s *SQLiteStore) CreateTask(t models.Task) (models.Task, error) {
	res, err := s.db.Exec(`
		INSERT INTO tasks (number, name, description, status, priority, responsible,
			due_date, attachments, created_at, updated_at, completed_at, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Number, t.Name, t.Description, string(t.Status), t.Priority, t.Responsible,
		formatNullTime(t.DueDate), t.Attachments, formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		formatNullTime(t.CompletedAt), boolToInt(t.Archived))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.Task{}, fmt.Errorf("task number %q: %w", t.Number, ErrConflict)
		}
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	t.ID = id
	return t, nil
}

func (s *SQLiteStore) GetTask(id int64) (models.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return models.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// sortColumns whitelists the columns a listing may be ordered by. Anything
// else silently falls back to the default order.
var sortColumns = map[string]string{
	"id":           "id",
	"number":       "number",
	"name":         "name",
	"description":  "description",
	"status":       "status",
	"priority":     "priority",
	"responsible":  "responsible",
	"due_date":     "due_date",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"completed_at": "completed_at",
}

func orderClause(sort TaskSort) string {
	column, ok := sortColumns[sort.Column]
	if !ok {
		sort = DefaultTaskSort
		column = sort.Column
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func (s *SQLiteStore) ListTasks(filter TaskFilter, sort TaskSort) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE archived = ?`
	args := []any{boolToInt(filter.Archived)}

	if filter.Search != "" {
		query += ` AND (number LIKE ? OR name LIKE ? OR description LIKE ? OR responsible LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like, like)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}
	if filter.Responsible != "" {
		query += ` AND responsible LIKE ?`
		args = append(args, "%"+filter.Responsible+"%")
	}
	if !filter.OverdueAt.IsZero() {
		query += ` AND due_date IS NOT NULL AND due_date < ? AND status != ?`
		args = append(args, formatTime(filter.OverdueAt), string(models.StatusDone))
	}
	query += orderClause(sort)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask rewrites the mutable columns and timestamps. The number column
// is immutable after creation and deliberately absent from the SET list.
func (s *SQLiteStore) UpdateTask(t models.Task) error {
	res, err := s.db.Exec(`
		UPDATE tasks SET name = ?, description = ?, status = ?, priority = ?,
			responsible = ?, due_date = ?, attachments = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, t.Name, t.Description, string(t.Status), t.Priority, t.Responsible,
		formatNullTime(t.DueDate), t.Attachments, formatTime(t.UpdatedAt),
		formatNullTime(t.CompletedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteTask(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListArchivable(cutoff time.Time) ([]models.Task, error) {
	rows, err := s.db.Query(`
		SELECT `+taskColumns+` FROM tasks
		WHERE archived = 0 AND status = ? AND completed_at IS NOT NULL AND completed_at < ?
	`, string(models.StatusDone), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("query archivable tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan archivable task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list archivable tasks: %w", err)
	}
	return tasks, nil
}

// ArchiveTask is a conditional update: the status guard rejects tasks that
// moved away from "done" between the archival scan and this commit.
func (s *SQLiteStore) ArchiveTask(id int64) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE tasks SET archived = 1
		WHERE id = ? AND status = ? AND archived = 0
	`, id, string(models.StatusDone))
	if err != nil {
		return false, fmt.Errorf("archive task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archive task rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *SQLiteStore) Stats(now time.Time) (TaskStats, error) {
	stats := TaskStats{
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE archived = 0`).Scan(&stats.Total); err != nil {
		return TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM tasks
		WHERE archived = 0 AND due_date IS NOT NULL AND due_date < ? AND status != ?
	`, formatTime(now), string(models.StatusDone)).Scan(&stats.Overdue); err != nil {
		return TaskStats{}, fmt.Errorf("count overdue tasks: %w", err)
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks WHERE archived = 0 GROUP BY status`)
	if err != nil {
		return TaskStats{}, fmt.Errorf("status stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return TaskStats{}, fmt.Errorf("scan status stat: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return TaskStats{}, fmt.Errorf("status stats: %w", err)
	}

	prows, err := s.db.Query(`SELECT priority, COUNT(*) FROM tasks WHERE archived = 0 AND priority != '' GROUP BY priority`)
	if err != nil {
		return TaskStats{}, fmt.Errorf("priority stats: %w", err)
	}
	defer func() { _ = prows.Close() }()
	for prows.Next() {
		var priority string
		var count int
		if err := prows.Scan(&priority, &count); err != nil {
			return TaskStats{}, fmt.Errorf("scan priority stat: %w", err)
		}
		stats.ByPriority[priority] = count
	}
	if err := prows.Err(); err != nil {
		return TaskStats{}, fmt.Errorf("priority stats: %w", err)
	}

	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
