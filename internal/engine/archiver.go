package engine

import (
	"fmt"
	"log/slog"
	"time"

	"skladtrack/models"
	"skladtrack/store"
)

// DefaultCooldown is the delay between completion and automatic archival:
// 7 calendar days, standing in for "5 working days".
const DefaultCooldown = 7 * 24 * time.Hour

// Archiver migrates completed tasks to the archived state once they have sat
// in "done" past the cooldown window.
type Archiver struct {
	tasks    store.TaskStore
	history  store.HistoryLedger
	clock    Clock
	cooldown time.Duration
}

// NewArchiver creates an archiver. A non-positive cooldown falls back to
// DefaultCooldown.
func NewArchiver(tasks store.TaskStore, history store.HistoryLedger, clock Clock, cooldown time.Duration) *Archiver {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Archiver{tasks: tasks, history: history, clock: clock, cooldown: cooldown}
}

// Run performs one archival pass and returns how many tasks it archived.
// The pass is idempotent: an immediate re-run archives nothing.
//
// Candidates come from a snapshot scan; the store's conditional update
// re-checks the "done" status at commit, so a task edited away from "done"
// mid-pass is skipped rather than wrongly archived. Per-task failures are
// reported and do not abort the remaining candidates.
func (a *Archiver) Run() (int, error) {
	cutoff := a.clock.Now().Add(-a.cooldown)
	candidates, err := a.tasks.ListArchivable(cutoff)
	if err != nil {
		return 0, fmt.Errorf("scan archivable tasks: %w", err)
	}

	archived := 0
	for _, task := range candidates {
		ok, err := a.tasks.ArchiveTask(task.ID)
		if err != nil {
			slog.Error("archive task failed", "task", task.ID, "number", task.Number, "err", err)
			continue
		}
		if !ok {
			// Status changed between scan and commit.
			continue
		}

		entry := models.HistoryEntry{
			TaskID:    task.ID,
			Action:    models.ActionArchived,
			Details:   fmt.Sprintf("automatically archived task %q", task.Name),
			Actor:     models.DefaultActor,
			Timestamp: a.clock.Now(),
			CanRevert: false,
		}
		if _, err := a.history.Append(entry); err != nil {
			slog.Warn("history append failed", "task", task.ID, "action", entry.Action, "err", err)
		}
		archived++
	}
	return archived, nil
}
