package engine

import (
	"fmt"

	"skladtrack/models"
	"skladtrack/store"
)

// RevertResult names the restored field and the value it was restored to.
type RevertResult struct {
	Field string `json:"revertedField"`
	Value string `json:"revertedTo"`
}

// Revert re-applies the old value recorded in a history entry as a new
// forward change. The original entry is untouched; a fresh Reverted entry is
// appended with CanRevert=false, so reverts cannot themselves be reverted.
//
// Returns store.ErrNotFound if the entry does not exist, belongs to another
// task, or is not revertible; ErrBadRequest if the entry carries no field
// name or names a field the task does not have.
func (e *Engine) Revert(taskID, historyID int64) (RevertResult, error) {
	entry, err := e.history.Find(taskID, historyID)
	if err != nil {
		return RevertResult{}, err
	}
	if !entry.CanRevert {
		return RevertResult{}, fmt.Errorf("history entry %d is not revertible: %w", historyID, store.ErrNotFound)
	}
	if entry.FieldName == "" {
		return RevertResult{}, fmt.Errorf("%w: history entry %d has no field to revert", ErrBadRequest, historyID)
	}
	field, ok := fieldByName(entry.FieldName)
	if !ok {
		return RevertResult{}, fmt.Errorf("%w: unknown field %q", ErrBadRequest, entry.FieldName)
	}

	task, err := e.tasks.GetTask(taskID)
	if err != nil {
		return RevertResult{}, err
	}

	current := field.get(&task)
	if err := field.set(&task, entry.OldValue); err != nil {
		return RevertResult{}, fmt.Errorf("%w: %s", ErrBadRequest, err)
	}
	task.UpdatedAt = e.clock.Now()

	if err := e.tasks.UpdateTask(task); err != nil {
		return RevertResult{}, err
	}

	if err := e.log(models.HistoryEntry{
		TaskID:    task.ID,
		Action:    models.ActionReverted,
		Details:   fmt.Sprintf("reverted field %q from %q to %q", entry.FieldName, current, entry.OldValue),
		FieldName: entry.FieldName,
		OldValue:  current,
		NewValue:  entry.OldValue,
		CanRevert: false,
	}); err != nil {
		return RevertResult{}, err
	}
	return RevertResult{Field: entry.FieldName, Value: entry.OldValue}, nil
}
