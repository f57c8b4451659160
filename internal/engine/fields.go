package engine

import (
	"fmt"
	"time"

	"skladtrack/models"
)

// TaskPatch is a partial update: nil means "leave the field alone". The task
// number is immutable and deliberately has no slot here.
type TaskPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Responsible *string    `json:"responsible,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Attachments *string    `json:"attachments,omitempty"`
}

// fieldSpec couples one mutable task field with its string serialization.
// The engine diffs and logs through this static table; every value crossing
// the ledger is a string, with "" standing for null.
type fieldSpec struct {
	name string
	get  func(*models.Task) string
	set  func(*models.Task, string) error
	// fromPatch extracts the serialized new value if the patch carries one.
	fromPatch func(*TaskPatch) (string, bool)
}

// taskFields enumerates the mutable fields in diff-and-log order.
var taskFields = []fieldSpec{
	{
		name: "name",
		get:  func(t *models.Task) string { return t.Name },
		set:  func(t *models.Task, v string) error { t.Name = v; return nil },
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.Name != nil {
				return *p.Name, true
			}
			return "", false
		},
	},
	{
		name: "description",
		get:  func(t *models.Task) string { return t.Description },
		set:  func(t *models.Task, v string) error { t.Description = v; return nil },
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.Description != nil {
				return *p.Description, true
			}
			return "", false
		},
	},
	{
		name: "status",
		get:  func(t *models.Task) string { return string(t.Status) },
		set:  func(t *models.Task, v string) error { t.Status = models.TaskStatus(v); return nil },
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.Status != nil {
				return *p.Status, true
			}
			return "", false
		},
	},
	{
		name: "priority",
		get:  func(t *models.Task) string { return t.Priority },
		set:  func(t *models.Task, v string) error { t.Priority = v; return nil },
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.Priority != nil {
				return *p.Priority, true
			}
			return "", false
		},
	},
	{
		name: "responsible",
		get:  func(t *models.Task) string { return t.Responsible },
		set:  func(t *models.Task, v string) error { t.Responsible = v; return nil },
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.Responsible != nil {
				return *p.Responsible, true
			}
			return "", false
		},
	},
	{
		name: "due_date",
		get: func(t *models.Task) string {
			if t.DueDate == nil {
				return ""
			}
			return t.DueDate.UTC().Format(time.RFC3339)
		},
		set: func(t *models.Task, v string) error {
			if v == "" {
				t.DueDate = nil
				return nil
			}
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fmt.Errorf("parse due_date %q: %w", v, err)
			}
			t.DueDate = &parsed
			return nil
		},
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.DueDate != nil {
				return p.DueDate.UTC().Format(time.RFC3339), true
			}
			return "", false
		},
	},
	{
		name: "attachments",
		get:  func(t *models.Task) string { return t.Attachments },
		set:  func(t *models.Task, v string) error { t.Attachments = v; return nil },
		fromPatch: func(p *TaskPatch) (string, bool) {
			if p.Attachments != nil {
				return *p.Attachments, true
			}
			return "", false
		},
	},
}

func fieldByName(name string) (fieldSpec, bool) {
	for _, f := range taskFields {
		if f.name == name {
			return f, true
		}
	}
	return fieldSpec{}, false
}

// change records one applied field mutation, serialized for the ledger.
type change struct {
	field    string
	oldValue string
	newValue string
}

// applyPatch walks the field table, applies every present and differing
// value to the task in place, and returns the changes in table order.
func applyPatch(t *models.Task, patch TaskPatch) ([]change, error) {
	var changes []change
	for _, f := range taskFields {
		newValue, present := f.fromPatch(&patch)
		if !present {
			continue
		}
		oldValue := f.get(t)
		if oldValue == newValue {
			continue
		}
		if err := f.set(t, newValue); err != nil {
			return nil, err
		}
		changes = append(changes, change{field: f.name, oldValue: oldValue, newValue: newValue})
	}
	return changes, nil
}
