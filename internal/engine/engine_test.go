package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"skladtrack/models"
	"skladtrack/store"
)

// fakeClock lets tests control time deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)}
}

func setupTestEngine(t *testing.T) (*Engine, *store.SQLiteStore, *fakeClock) {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	clock := newFakeClock()
	return New(st, st, clock, "tester"), st, clock
}

func strPtr(s string) *string {
	return &s
}

func historyFor(t *testing.T, st *store.SQLiteStore, taskID int64) []models.HistoryEntry {
	t.Helper()
	entries, err := st.ForTask(taskID)
	if err != nil {
		t.Fatalf("ForTask failed: %v", err)
	}
	return entries
}

func TestEngine_CreateDefaultsAndLedger(t *testing.T) {
	eng, st, clock := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Bracket batch"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != models.StatusInDevelopment {
		t.Errorf("Status should default to in-development, got %q", task.Status)
	}
	if !task.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", task.CreatedAt, clock.Now())
	}
	if task.CompletedAt != nil {
		t.Errorf("CompletedAt should be nil, got %v", task.CompletedAt)
	}

	entries := historyFor(t, st, task.ID)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].Action != models.ActionCreated {
		t.Errorf("Action: got %q, want %q", entries[0].Action, models.ActionCreated)
	}
	if entries[0].Actor != "tester" {
		t.Errorf("Actor: got %q, want %q", entries[0].Actor, "tester")
	}
	if entries[0].CanRevert {
		t.Error("Creation entry must not be revertible")
	}
}

func TestEngine_CreateValidation(t *testing.T) {
	eng, _, _ := setupTestEngine(t)

	if _, err := eng.Create(TaskInput{Number: "T-001"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("Expected ErrBadRequest for missing name, got %v", err)
	}
	if _, err := eng.Create(TaskInput{Name: "No number"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("Expected ErrBadRequest for missing number, got %v", err)
	}
}

func TestEngine_CreateDuplicateNumber(t *testing.T) {
	eng, _, _ := setupTestEngine(t)

	if _, err := eng.Create(TaskInput{Number: "T-001", Name: "First"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := eng.Create(TaskInput{Number: "T-001", Name: "Second"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
}

func TestEngine_CreateBornDone(t *testing.T) {
	eng, _, clock := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Done on arrival", Status: string(models.StatusDone)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(clock.Now()) {
		t.Errorf("CompletedAt should be stamped at creation, got %v", task.CompletedAt)
	}
}

func TestEngine_UpdateLogsEachChange(t *testing.T) {
	eng, st, _ := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Before", Priority: "low"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := eng.Update(task.ID, TaskPatch{
		Name:     strPtr("After"),
		Priority: strPtr("high"),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "After" || updated.Priority != "high" {
		t.Errorf("Fields not applied: %+v", updated)
	}

	entries := historyFor(t, st, task.ID)
	// Creation entry plus one entry per changed field.
	if len(entries) != 3 {
		t.Fatalf("Expected 3 ledger entries, got %d", len(entries))
	}

	byField := map[string]models.HistoryEntry{}
	for _, e := range entries {
		if e.Action == models.ActionUpdated {
			byField[e.FieldName] = e
		}
	}
	nameEntry, ok := byField["name"]
	if !ok {
		t.Fatal("Missing ledger entry for name change")
	}
	if nameEntry.OldValue != "Before" || nameEntry.NewValue != "After" {
		t.Errorf("name entry: got %q -> %q", nameEntry.OldValue, nameEntry.NewValue)
	}
	if !nameEntry.CanRevert {
		t.Error("Field change entries must be revertible")
	}
	if _, ok := byField["priority"]; !ok {
		t.Fatal("Missing ledger entry for priority change")
	}
}

func TestEngine_UpdateNoChange(t *testing.T) {
	eng, st, clock := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Same"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	clock.Advance(time.Hour)
	updated, err := eng.Update(task.ID, TaskPatch{Name: strPtr("Same")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// UpdatedAt is stamped even when nothing changed; the ledger stays quiet.
	if !updated.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("UpdatedAt should be stamped: got %v, want %v", updated.UpdatedAt, clock.Now())
	}
	entries := historyFor(t, st, task.ID)
	if len(entries) != 1 {
		t.Fatalf("Expected only the creation entry, got %d entries", len(entries))
	}
}

func TestEngine_UpdateNotFound(t *testing.T) {
	eng, _, _ := setupTestEngine(t)

	if _, err := eng.Update(999, TaskPatch{Name: strPtr("x")}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestEngine_CompletedAtHighWaterMark(t *testing.T) {
	eng, _, clock := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Job"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	clock.Advance(time.Hour)
	firstDone := clock.Now()
	updated, err := eng.Update(task.ID, TaskPatch{Status: strPtr(string(models.StatusDone))})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(firstDone) {
		t.Fatalf("CompletedAt should be stamped on first done: got %v", updated.CompletedAt)
	}

	// Reopening keeps the stamp.
	clock.Advance(time.Hour)
	updated, err = eng.Update(task.ID, TaskPatch{Status: strPtr(string(models.StatusInProgress))})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(firstDone) {
		t.Errorf("CompletedAt must survive reopening: got %v", updated.CompletedAt)
	}

	// A second completion does not move the stamp.
	clock.Advance(time.Hour)
	updated, err = eng.Update(task.ID, TaskPatch{Status: strPtr(string(models.StatusDone))})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated.CompletedAt.Equal(firstDone) {
		t.Errorf("CompletedAt must not be re-stamped: got %v, want %v", updated.CompletedAt, firstDone)
	}
}

func TestEngine_BulkUpdate(t *testing.T) {
	eng, st, _ := setupTestEngine(t)

	a, _ := eng.Create(TaskInput{Number: "T-001", Name: "A", Priority: "low"})
	b, _ := eng.Create(TaskInput{Number: "T-002", Name: "B", Priority: "low"})
	same, _ := eng.Create(TaskInput{Number: "T-003", Name: "C", Priority: "high"})

	result, err := eng.BulkUpdate([]int64{a.ID, b.ID, same.ID, 999}, TaskPatch{Priority: strPtr("high")})
	if err != nil {
		t.Fatalf("BulkUpdate failed: %v", err)
	}
	// The task already at "high" and the missing id do not count.
	if result.UpdatedCount != 2 {
		t.Errorf("UpdatedCount: got %d, want 2", result.UpdatedCount)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", result.Errors)
	}

	// Each changed task gets one consolidated entry, not one per field.
	entries := historyFor(t, st, a.ID)
	if len(entries) != 2 {
		t.Fatalf("Expected creation + 1 bulk entry, got %d", len(entries))
	}
	if entries[0].Action != models.ActionBulkUpdated {
		t.Errorf("Action: got %q, want %q", entries[0].Action, models.ActionBulkUpdated)
	}
	if !strings.Contains(entries[0].Details, `"low" -> "high"`) {
		t.Errorf("Details should describe the change, got %q", entries[0].Details)
	}
	if entries[0].CanRevert {
		t.Error("Consolidated bulk entries are not revertible")
	}

	unchanged := historyFor(t, st, same.ID)
	if len(unchanged) != 1 {
		t.Errorf("Unchanged task should get no bulk entry, got %d entries", len(unchanged))
	}
}

func TestEngine_BulkUpdateEmptyIDs(t *testing.T) {
	eng, _, _ := setupTestEngine(t)

	if _, err := eng.BulkUpdate(nil, TaskPatch{Priority: strPtr("high")}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("Expected ErrBadRequest, got %v", err)
	}
}

func TestEngine_DeleteKeepsHistory(t *testing.T) {
	eng, st, _ := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Doomed"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := eng.Delete(task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.GetTask(task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Task should be gone, got %v", err)
	}

	// Deletion is terminal and writes no entry; prior history stays.
	entries := historyFor(t, st, task.ID)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 surviving entry, got %d", len(entries))
	}
	if entries[0].Action != models.ActionCreated {
		t.Errorf("Surviving entry: got %q, want %q", entries[0].Action, models.ActionCreated)
	}
}

// failingLedger refuses appends while delegating reads to the real ledger.
type failingLedger struct {
	store.HistoryLedger
}

func (failingLedger) Append(models.HistoryEntry) (models.HistoryEntry, error) {
	return models.HistoryEntry{}, errors.New("ledger unavailable")
}

func TestEngine_SingleItemMutationsFailWithoutLedger(t *testing.T) {
	eng, st, clock := setupTestEngine(t)

	task, err := eng.Create(TaskInput{Number: "T-001", Name: "Job"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Single-item mutations must not report success for a change the ledger
	// did not record.
	broken := New(st, failingLedger{st}, clock, "tester")
	if _, err := broken.Create(TaskInput{Number: "T-002", Name: "Unrecorded"}); err == nil {
		t.Error("Create should fail when the ledger append fails")
	}
	if _, err := broken.Update(task.ID, TaskPatch{Name: strPtr("Renamed")}); err == nil {
		t.Error("Update should fail when the ledger append fails")
	}

	// Batch passes stay best-effort: the task change itself still lands.
	result, err := broken.BulkUpdate([]int64{task.ID}, TaskPatch{Priority: strPtr("high")})
	if err != nil {
		t.Fatalf("BulkUpdate failed: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Errorf("UpdatedCount: got %d, want 1", result.UpdatedCount)
	}
}

func TestEngine_BulkDelete(t *testing.T) {
	eng, st, _ := setupTestEngine(t)

	a, _ := eng.Create(TaskInput{Number: "T-001", Name: "A"})
	b, _ := eng.Create(TaskInput{Number: "T-002", Name: "B"})

	result, err := eng.BulkDelete([]int64{a.ID, b.ID, 999})
	if err != nil {
		t.Fatalf("BulkDelete failed: %v", err)
	}
	if result.DeletedCount != 2 {
		t.Errorf("DeletedCount: got %d, want 2", result.DeletedCount)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", result.Errors)
	}

	if _, err := st.GetTask(a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Task A should be gone, got %v", err)
	}

	if _, err := eng.BulkDelete(nil); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("Expected ErrBadRequest for empty ids, got %v", err)
	}
}
