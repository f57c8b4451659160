package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skladtrack/models"
	"skladtrack/store"
)

// ErrBadRequest marks malformed input: empty id lists on bulk operations,
// reverts of non-field entries, invalid task payloads.
var ErrBadRequest = errors.New("bad request")

// Engine applies all task mutations: it validates input, diffs old against
// new field values, writes the task store and appends ledger entries. Every
// write path to a task goes through here.
type Engine struct {
	tasks   store.TaskStore
	history store.HistoryLedger
	clock   Clock
	actor   string
}

// New creates an engine writing ledger entries on behalf of actor. An empty
// actor falls back to the ledger default.
func New(tasks store.TaskStore, history store.HistoryLedger, clock Clock, actor string) *Engine {
	if actor == "" {
		actor = models.DefaultActor
	}
	return &Engine{tasks: tasks, history: history, clock: clock, actor: actor}
}

// TaskInput carries the caller-supplied fields for task creation.
type TaskInput struct {
	Number      string     `json:"number"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Responsible string     `json:"responsible"`
	DueDate     *time.Time `json:"dueDate"`
	Attachments string     `json:"attachments"`
}

// Create persists a new task and logs a Created ledger entry. Creation is
// not individually revertible. Returns store.ErrConflict if the number is
// already taken.
func (e *Engine) Create(input TaskInput) (models.Task, error) {
	now := e.clock.Now()
	task := models.Task{
		Number:      input.Number,
		Name:        input.Name,
		Description: input.Description,
		Status:      models.TaskStatus(input.Status),
		Priority:    input.Priority,
		Responsible: input.Responsible,
		DueDate:     input.DueDate,
		Attachments: input.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = models.StatusInDevelopment
	}
	// A task born "done" has reached completion; the high-water mark applies
	// from creation.
	if task.IsDone() {
		task.CompletedAt = &now
	}
	if err := models.ValidateStruct(task); err != nil {
		return models.Task{}, fmt.Errorf("%w: %s", ErrBadRequest, err)
	}

	created, err := e.tasks.CreateTask(task)
	if err != nil {
		return models.Task{}, err
	}

	if err := e.log(models.HistoryEntry{
		TaskID:  created.ID,
		Action:  models.ActionCreated,
		Details: fmt.Sprintf("created task %q", created.Name),
	}); err != nil {
		return models.Task{}, err
	}
	return created, nil
}

// Update applies a partial update to one task. Each changed field produces
// exactly one revertible Updated ledger entry. UpdatedAt is stamped on every
// successful call, whether or not any field actually changed.
func (e *Engine) Update(id int64, patch TaskPatch) (models.Task, error) {
	task, err := e.tasks.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}

	changes, err := applyPatch(&task, patch)
	if err != nil {
		return models.Task{}, fmt.Errorf("%w: %s", ErrBadRequest, err)
	}

	now := e.clock.Now()
	e.stampCompletion(&task, changes, now)
	task.UpdatedAt = now

	if err := e.tasks.UpdateTask(task); err != nil {
		return models.Task{}, err
	}

	for _, c := range changes {
		if err := e.log(models.HistoryEntry{
			TaskID:    task.ID,
			Action:    models.ActionUpdated,
			Details:   fmt.Sprintf("field %q changed from %q to %q", c.field, c.oldValue, c.newValue),
			FieldName: c.field,
			OldValue:  c.oldValue,
			NewValue:  c.newValue,
			CanRevert: true,
		}); err != nil {
			return models.Task{}, err
		}
	}
	return task, nil
}

// BulkResult reports a bulk update: how many tasks actually changed, plus
// per-item error strings. Partial success is the normal outcome.
type BulkResult struct {
	UpdatedCount int      `json:"updatedCount"`
	Errors       []string `json:"errors,omitempty"`
}

// BulkUpdate applies the same patch independently to each task. Missing ids
// are skipped silently; a task with no net field difference does not count
// as updated. Each changed task gets one consolidated BulkUpdated entry
// rather than one entry per field, to keep the ledger bounded on large
// batches.
func (e *Engine) BulkUpdate(ids []int64, patch TaskPatch) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no task ids given", ErrBadRequest)
	}

	var result BulkResult
	for _, id := range ids {
		task, err := e.tasks.GetTask(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("task %d: %v", id, err))
			continue
		}

		changes, err := applyPatch(&task, patch)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("task %d: %v", id, err))
			continue
		}
		if len(changes) == 0 {
			continue
		}

		now := e.clock.Now()
		e.stampCompletion(&task, changes, now)
		task.UpdatedAt = now

		if err := e.tasks.UpdateTask(task); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("task %d: %v", id, err))
			continue
		}

		parts := make([]string, 0, len(changes))
		for _, c := range changes {
			parts = append(parts, fmt.Sprintf("%s: %q -> %q", c.field, c.oldValue, c.newValue))
		}
		e.logBestEffort(models.HistoryEntry{
			TaskID:  task.ID,
			Action:  models.ActionBulkUpdated,
			Details: "bulk update: " + strings.Join(parts, "; "),
		})
		result.UpdatedCount++
	}
	return result, nil
}

// Delete removes a task permanently. No ledger entry is written; prior
// history rows keep referencing the now-absent task id for audit.
func (e *Engine) Delete(id int64) error {
	return e.tasks.DeleteTask(id)
}

// BulkDeleteResult reports a bulk delete.
type BulkDeleteResult struct {
	DeletedCount int      `json:"deletedCount"`
	Errors       []string `json:"errors,omitempty"`
}

// BulkDelete removes each listed task independently; missing ids are skipped.
func (e *Engine) BulkDelete(ids []int64) (BulkDeleteResult, error) {
	if len(ids) == 0 {
		return BulkDeleteResult{}, fmt.Errorf("%w: no task ids given", ErrBadRequest)
	}

	var result BulkDeleteResult
	for _, id := range ids {
		if err := e.tasks.DeleteTask(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("task %d: %v", id, err))
			continue
		}
		result.DeletedCount++
	}
	return result, nil
}

// stampCompletion sets CompletedAt when the applied changes moved the status
// into "done" for the first time. The stamp is a documented side effect of
// the status transition, not a diffed field change, so it is never logged.
func (e *Engine) stampCompletion(task *models.Task, changes []change, now time.Time) {
	if task.CompletedAt != nil {
		return
	}
	for _, c := range changes {
		if c.field == "status" && c.newValue == string(models.StatusDone) {
			task.CompletedAt = &now
			return
		}
	}
}

// log appends a ledger entry, filling in the actor and timestamp. Single-item
// mutations treat a failed append as a failed operation: the caller must not
// report success for a change the ledger did not record.
func (e *Engine) log(entry models.HistoryEntry) error {
	entry.Actor = e.actor
	entry.Timestamp = e.clock.Now()
	if _, err := e.history.Append(entry); err != nil {
		return fmt.Errorf("append history for task %d: %w", entry.TaskID, err)
	}
	return nil
}

// logBestEffort appends a ledger entry for batch passes, where one task's
// append failure must not abort the remaining items.
func (e *Engine) logBestEffort(entry models.HistoryEntry) {
	if err := e.log(entry); err != nil {
		slog.Warn("history append failed", "task", entry.TaskID, "action", entry.Action, "err", err)
	}
}
