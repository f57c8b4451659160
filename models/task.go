package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskStatus represents the lifecycle status of a task. The set below covers
// the recognized workshop statuses, but the field is an open string: callers
// may introduce site-specific statuses without a schema change.
type TaskStatus string

const (
	StatusInDevelopment TaskStatus = "in-development"
	StatusPrepared      TaskStatus = "prepared"
	StatusInProgress    TaskStatus = "in-progress"
	StatusStopped       TaskStatus = "stopped"
	StatusDone          TaskStatus = "done"
)

// Task represents a unit of manufacturing work tracked through its lifecycle.
type Task struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number" validate:"required"` // unique, immutable after creation
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	Responsible string     `json:"responsible,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Attachments string     `json:"attachments,omitempty"` // opaque serialized reference
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	// CompletedAt is a high-water mark: stamped on the first transition into
	// "done" and never cleared, even if the status later moves away.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Archived    bool       `json:"archived"`
}

// IsDone reports whether the task currently sits in the "done" status.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// shared validator instance; caches struct metadata across calls
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that carries validation tags.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var messages []string
	for _, e := range validationErrors {
		messages = append(messages, fmt.Sprintf("field '%s' failed rule '%s'", e.StructNamespace(), e.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
