package models

import "time"

// HistoryAction classifies a ledger entry.
type HistoryAction string

const (
	ActionCreated     HistoryAction = "created"
	ActionUpdated     HistoryAction = "updated"
	ActionBulkUpdated HistoryAction = "bulk-updated"
	ActionImported    HistoryAction = "imported"
	ActionReverted    HistoryAction = "reverted"
	ActionArchived    HistoryAction = "archived"
)

// DefaultActor is recorded on ledger entries written without an explicit actor.
const DefaultActor = "system"

// HistoryEntry is one immutable record in a task's change ledger. Entries are
// append-only: a revert never edits an existing row, it writes a new one.
//
// TaskID is a non-owning reference. History survives task deletion, so a
// TaskID may point at a task that no longer exists.
type HistoryEntry struct {
	ID        int64         `json:"id"`
	TaskID    int64         `json:"taskId" validate:"required"`
	Action    HistoryAction `json:"action" validate:"required"`
	Details   string        `json:"details" validate:"required"`
	FieldName string        `json:"fieldName,omitempty"` // empty for non-field-level actions
	OldValue  string        `json:"oldValue,omitempty"`  // string-serialized; "" stands for null
	NewValue  string        `json:"newValue,omitempty"`
	Actor     string        `json:"actor"`
	Timestamp time.Time     `json:"timestamp"`
	// CanRevert is true only for single-field update entries carrying a
	// concrete old value. Reverts themselves are never revertible.
	CanRevert bool `json:"canRevert"`
}
