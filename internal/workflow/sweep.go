package workflow

import (
	"time"

	"github.com/hmuroya/taskward/internal/task"
)

// ActiveStatus reports whether a task can still be worked on. Only active
// tasks receive overdue reminders.
func ActiveStatus(s task.Status) bool {
	switch s {
	case task.StatusOpen, task.StatusClaimed, task.StatusNeedsReview,
		task.StatusMergeDone, task.StatusMergeApproved:
		return true
	}
	return false
}

// ArchiveDue reports whether a finished task has sat in COMPLETED or
// CANCELLED longer than the archive delay. The relevant terminal timestamp is
// used; UpdatedAt is the fallback for records written before those stamps
// existed.
func ArchiveDue(t *task.Task, now time.Time, after time.Duration) bool {
	var ref time.Time
	switch t.Status {
	case task.StatusCompleted:
		ref = t.UpdatedAt
		if t.CompletedAt != nil {
			ref = *t.CompletedAt
		}
	case task.StatusCancelled:
		ref = t.UpdatedAt
		if t.CancelledAt != nil {
			ref = *t.CancelledAt
		}
	default:
		return false
	}
	return now.Sub(ref) > after
}

// Overdue reports whether an active task is past its due instant.
func Overdue(t *task.Task, now time.Time) bool {
	return ActiveStatus(t.Status) && t.DueAt.Before(now)
}

// ReminderDue reports whether an overdue task may receive another reminder:
// never reminded, or throttle elapsed since the last one. The business-hours
// gate is the calendar's concern and is applied by the caller.
func ReminderDue(t *task.Task, now time.Time, throttle time.Duration) bool {
	if !Overdue(t, now) {
		return false
	}
	return t.LastReminderAt == nil || now.Sub(*t.LastReminderAt) >= throttle
}

// PurgeDue reports whether an archived task has aged past the retention
// window and should be removed for good.
func PurgeDue(t *task.Task, now time.Time, retention time.Duration) bool {
	if t.Status != task.StatusArchived || t.ArchivedAt == nil {
		return false
	}
	return now.Sub(*t.ArchivedAt) > retention
}
