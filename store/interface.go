package store

import (
	"time"

	"skladtrack/models"
)

// TaskFilter narrows a task listing. Zero values mean "no constraint".
type TaskFilter struct {
	// Archived selects the archived partition instead of the active one.
	Archived bool
	// Search matches as a substring against number, name, description and
	// responsible (logical OR across the four fields).
	Search string
	// Status and Priority are exact matches.
	Status   string
	Priority string
	// Responsible is a substring containment match.
	Responsible string
	// OverdueAt, when non-zero, restricts to tasks with a due date before
	// the given instant whose status is not "done".
	OverdueAt time.Time
}

// TaskSort names a column and direction for task listings. Unrecognized
// columns silently fall back to the default (created_at descending); that
// tolerance is deliberate so that clients can send arbitrary column names.
type TaskSort struct {
	Column     string
	Descending bool
}

// DefaultTaskSort is applied when no sort (or an unrecognized one) is given.
var DefaultTaskSort = TaskSort{Column: "created_at", Descending: true}

// TaskStore owns the canonical current state of each task.
type TaskStore interface {
	// CreateTask persists a new task and assigns its ID. Returns ErrConflict
	// if the number is already taken (active or archived).
	CreateTask(t models.Task) (models.Task, error)

	// GetTask returns a task by ID or ErrNotFound.
	GetTask(id int64) (models.Task, error)

	// ListTasks returns tasks matching the filter in the given order.
	ListTasks(filter TaskFilter, sort TaskSort) ([]models.Task, error)

	// UpdateTask writes the task's mutable fields and timestamps back by ID.
	// The number is immutable and never rewritten. Returns ErrNotFound if
	// the task no longer exists.
	UpdateTask(t models.Task) error

	// DeleteTask removes a task permanently. History rows referencing it are
	// retained. Returns ErrNotFound if absent.
	DeleteTask(id int64) error

	// ListArchivable returns active tasks in "done" status whose completion
	// timestamp is strictly before the cutoff.
	ListArchivable(cutoff time.Time) ([]models.Task, error)

	// ArchiveTask flips the archived flag, guarded by a conditional update:
	// the task must still be in "done" status and not yet archived at commit
	// time. Reports whether the task was archived by this call.
	ArchiveTask(id int64) (bool, error)

	// Stats aggregates counters over active tasks as of the given instant.
	Stats(now time.Time) (TaskStats, error)

	Close() error
}

// TaskStats carries the dashboard counters for active tasks.
type TaskStats struct {
	Total      int            `json:"total"`
	Overdue    int            `json:"overdue"`
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
}

// HistoryLedger is the append-only change log. Entries are immutable once
// written.
type HistoryLedger interface {
	// Append inserts an entry and assigns its ID and default actor.
	Append(e models.HistoryEntry) (models.HistoryEntry, error)

	// ForTask returns all entries for a task, newest first.
	ForTask(taskID int64) ([]models.HistoryEntry, error)

	// Find returns the entry with the given ID if it belongs to the task,
	// ErrNotFound otherwise.
	Find(taskID, entryID int64) (models.HistoryEntry, error)
}

// ReceptionStore persists goods-acceptance records.
type ReceptionStore interface {
	CreateReception(r models.Reception) (models.Reception, error)
	// ListReceptions returns records newest first; search matches order
	// number, designation, name and route card number; status is exact.
	ListReceptions(search, status string) ([]models.Reception, error)
}

// FilterStore persists saved task-filter presets.
type FilterStore interface {
	CreateFilter(f models.SavedFilter) (models.SavedFilter, error)
	ListFilters() ([]models.SavedFilter, error)
	DeleteFilter(id int64) error
}
