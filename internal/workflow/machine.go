// Package workflow is the pure task state machine: which status edges exist
// for a category, who may traverse them, and which tasks are eligible for
// maintenance actions. Nothing in here touches storage or the clock beyond
// the instants passed in.
package workflow

import (
	"fmt"

	"github.com/hmuroya/taskward/internal/task"
)

// TransitionError reports a target status outside the allowed edge set.
type TransitionError struct {
	From task.Status
	To   task.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition from %q to %q is not allowed", e.From, e.To)
}

// PermissionError reports the specific rule that rejected an otherwise valid
// transition. Callers distinguish it from TransitionError.
type PermissionError struct {
	Rule string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Rule)
}

// forwardNext returns the single forward edge for a category, if any. The
// merge-request category routes through MERGE_DONE and MERGE_APPROVED; every
// other category goes straight from CLAIMED to COMPLETED.
func forwardNext(category task.Category, from task.Status) (task.Status, bool) {
	if category == task.CategoryMergeRequest {
		switch from {
		case task.StatusOpen:
			return task.StatusClaimed, true
		case task.StatusClaimed:
			return task.StatusMergeDone, true
		case task.StatusMergeDone:
			return task.StatusMergeApproved, true
		case task.StatusMergeApproved:
			return task.StatusCompleted, true
		case task.StatusCompleted:
			return task.StatusArchived, true
		}
		return "", false
	}
	switch from {
	case task.StatusOpen:
		return task.StatusClaimed, true
	case task.StatusClaimed:
		return task.StatusCompleted, true
	case task.StatusCompleted:
		return task.StatusArchived, true
	}
	return "", false
}

// sideEdges are always available regardless of category.
var sideEdges = map[task.Status][]task.Status{
	task.StatusOpen:          {task.StatusCancelled},
	task.StatusClaimed:       {task.StatusNeedsReview, task.StatusCancelled},
	task.StatusNeedsReview:   {task.StatusClaimed, task.StatusCompleted, task.StatusCancelled},
	task.StatusMergeDone:     {task.StatusCancelled},
	task.StatusMergeApproved: {task.StatusCancelled},
}

// NextAllowedStatuses returns the forward edge for the task's category plus
// its side edges. The result never contains the task's current status.
func NextAllowedStatuses(t *task.Task) []task.Status {
	var next []task.Status
	if to, ok := forwardNext(t.Category, t.Status); ok {
		next = append(next, to)
	}
	for _, to := range sideEdges[t.Status] {
		if !contains(next, to) {
			next = append(next, to)
		}
	}
	return next
}

// CanTransition checks edge validity only; permission checks come after.
func CanTransition(t *task.Task, to task.Status) error {
	if contains(NextAllowedStatuses(t), to) {
		return nil
	}
	return &TransitionError{From: t.Status, To: to}
}

func contains(statuses []task.Status, s task.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
