package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hmuroya/taskward/internal/calendar"
	"github.com/hmuroya/taskward/internal/eventbus"
	"github.com/hmuroya/taskward/internal/notify"
	"github.com/hmuroya/taskward/internal/task"
	"github.com/hmuroya/taskward/internal/workflow"
)

// maintenanceActor stamps history entries written by the sweep.
var maintenanceActor = task.Actor{ID: "system", DisplayName: "maintenance"}

type SweepResult struct {
	Reminded     int `json:"reminded"`
	AutoArchived int `json:"auto_archived"`
	Purged       int `json:"purged"`
	// Failed counts post-commit side effects (history appends, notification
	// deliveries) that did not succeed; the sweep keeps going regardless.
	Failed int `json:"failed"`
}

func (r SweepResult) changed() bool {
	return r.Reminded+r.AutoArchived+r.Purged > 0
}

// RunMaintenanceSweep applies the three maintenance passes over the whole
// task set: auto-archive of stale finished tasks, throttled overdue
// reminders, and retention purge of old archives. It is read-all,
// compute-all, write-all: mutations land in one batch write, and only when
// at least one pass changed something. Due dates are never recomputed here.
func (s *TaskService) RunMaintenanceSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	tasks, err := s.repo.ListAll(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var (
		res      SweepResult
		retained = make([]*task.Task, 0, len(tasks))
		archived []*task.Task
		reminded []*task.Task
	)
	withinHours := calendar.WithinBusinessHours(now, s.cfg.Calendar)

	for _, t := range tasks {
		t := t.Clone()

		if workflow.ArchiveDue(t, now, s.cfg.ArchiveAfter) {
			t.Status = task.StatusArchived
			stamp := now
			t.ArchivedAt = &stamp
			t.UpdatedAt = now
			archived = append(archived, t)
			res.AutoArchived++
		}

		// The archive pass may have just deactivated the task; reminders
		// only consider the post-archive status.
		if withinHours && workflow.ReminderDue(t, now, s.cfg.ReminderThrottle) {
			stamp := now
			t.LastReminderAt = &stamp
			t.UpdatedAt = now
			reminded = append(reminded, t)
			res.Reminded++
		}

		if workflow.PurgeDue(t, now, s.cfg.Retention) {
			res.Purged++
			continue
		}
		retained = append(retained, t)
	}

	if !res.changed() {
		return res, nil
	}

	if err := s.repo.ReplaceAll(ctx, retained); err != nil {
		return SweepResult{}, err
	}

	// Side effects only after the batch commit. A single failing task must
	// not stop the rest.
	for _, t := range archived {
		event := s.historyEvent(t.ID, task.ActionArchived, "auto-archived by maintenance", maintenanceActor, now)
		if err := s.repo.AppendHistory(ctx, event); err != nil {
			res.Failed++
			slog.WarnContext(ctx, "failed to append archive history", "task_id", t.ID, "error", err)
		}
	}
	for _, t := range reminded {
		message := fmt.Sprintf("task %q is overdue (due %s)", t.Name, t.DueAt.Format(time.RFC3339))
		if err := s.notifier.Notify(ctx, notify.KindReminder, t, maintenanceActor, message); err != nil {
			res.Failed++
			slog.WarnContext(ctx, "failed to deliver reminder", "task_id", t.ID, "error", err)
		}
		event := s.historyEvent(t.ID, task.ActionReminded, "overdue reminder sent", maintenanceActor, now)
		if err := s.repo.AppendHistory(ctx, event); err != nil {
			res.Failed++
			slog.WarnContext(ctx, "failed to append reminder history", "task_id", t.ID, "error", err)
		}
	}
	for _, t := range retained {
		s.bus.PublishNew(eventbus.EventTypeTaskSynced, t.ID, map[string]string{
			"status": string(t.Status),
		})
	}

	slog.InfoContext(ctx, "maintenance sweep finished",
		"reminded", res.Reminded,
		"auto_archived", res.AutoArchived,
		"purged", res.Purged,
		"failed", res.Failed,
	)
	return res, nil
}
