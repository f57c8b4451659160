package engine

import (
	"errors"
	"fmt"
	"strings"

	"skladtrack/models"
	"skladtrack/store"
)

// Row is one record from an import source, keyed by lowercased column name.
type Row map[string]string

// Lookup resolves a column case-insensitively.
func (r Row) Lookup(column string) (string, bool) {
	v, ok := r[strings.ToLower(column)]
	return v, ok
}

// RowSource yields import rows one at a time. Next returns nil when the
// source is exhausted. Sources are finite and not restartable.
type RowSource interface {
	Next() (Row, error)
}

// ImportResult reports a finished import batch. Row-level failures land in
// Errors; the batch as a whole still succeeds.
type ImportResult struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportBatch creates one task per source row. Missing numbers are
// synthesized deterministically from the row position; rows whose number
// collides with an existing task are skipped and recorded as errors. Each
// created task gets an Imported ledger entry naming the source.
//
// Error strings reference sheet row numbers (data row index + 2, accounting
// for the header row) so that users can find the offending line in their
// spreadsheet.
func (e *Engine) ImportBatch(src RowSource, source string) (ImportResult, error) {
	var result ImportResult

	for index := 0; ; index++ {
		row, err := src.Next()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", index+2, err))
			break
		}
		if row == nil {
			break
		}

		number, _ := row.Lookup("number")
		if number == "" {
			number = fmt.Sprintf("AUTO-%d", index)
		}
		name, _ := row.Lookup("name")
		description, _ := row.Lookup("description")
		status, _ := row.Lookup("status")
		if status == "" {
			status = string(models.StatusInDevelopment)
		}

		now := e.clock.Now()
		task := models.Task{
			Number:      number,
			Name:        name,
			Description: description,
			Status:      models.TaskStatus(status),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		// Rows imported as "done" have reached completion, same as tasks
		// created born done.
		if task.IsDone() {
			task.CompletedAt = &now
		}
		if err := models.ValidateStruct(task); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", index+2, err))
			continue
		}

		created, err := e.tasks.CreateTask(task)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: task number %q already exists", index+2, number))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", index+2, err))
			}
			continue
		}

		e.logBestEffort(models.HistoryEntry{
			TaskID:  created.ID,
			Action:  models.ActionImported,
			Details: fmt.Sprintf("imported from %s", source),
		})
		result.Created++
	}
	return result, nil
}
