package store

import (
	"database/sql"
	"fmt"

	"skladtrack/models"
)

// === HistoryLedger ===

const historyColumns = `id, task_id, action, details, field_name, old_value, new_value, actor, timestamp, can_revert`

func scanHistory(scan func(dest ...any) error) (models.HistoryEntry, error) {
	var e models.HistoryEntry
	var timestamp string
	var canRevert int
	err := scan(&e.ID, &e.TaskID, &e.Action, &e.Details, &e.FieldName,
		&e.OldValue, &e.NewValue, &e.Actor, &timestamp, &canRevert)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	e.Timestamp = parseTime(timestamp)
	e.CanRevert = canRevert != 0
	return e, nil
}

// Append inserts a ledger entry. Entries are never updated or deleted; the
// ledger only grows.
func (s *SQLiteStore) Append(e models.HistoryEntry) (models.HistoryEntry, error) {
	if e.Actor == "" {
		e.Actor = models.DefaultActor
	}
	if err := models.ValidateStruct(e); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("history entry: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO task_history (task_id, action, details, field_name, old_value, new_value, actor, timestamp, can_revert)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.TaskID, string(e.Action), e.Details, e.FieldName, e.OldValue, e.NewValue,
		e.Actor, formatTime(e.Timestamp), boolToInt(e.CanRevert))
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("history entry id: %w", err)
	}
	e.ID = id
	return e, nil
}

// ForTask returns the task's ledger, newest first. The entry ID breaks ties
// for entries written within the same second.
func (s *SQLiteStore) ForTask(taskID int64) ([]models.HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT `+historyColumns+` FROM task_history
		WHERE task_id = ?
		ORDER BY timestamp DESC, id DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []models.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Find(taskID, entryID int64) (models.HistoryEntry, error) {
	row := s.db.QueryRow(`
		SELECT `+historyColumns+` FROM task_history
		WHERE id = ? AND task_id = ?
	`, entryID, taskID)
	e, err := scanHistory(row.Scan)
	if err == sql.ErrNoRows {
		return models.HistoryEntry{}, fmt.Errorf("history entry %d for task %d: %w", entryID, taskID, ErrNotFound)
	}
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("query history entry: %w", err)
	}
	return e, nil
}
