package task

import "context"

// Repository persists tasks and their history. All mutating calls against the
// same backing document are strictly serialized: a write enqueued after
// another observes the prior write's effect.
type Repository interface {
	ListAll(ctx context.Context) ([]*Task, error)
	FindByID(ctx context.Context, id string) (*Task, error)
	// Upsert replaces the task by id (inserting if absent) and, when event is
	// non-nil, appends it to the history log in the same write.
	Upsert(ctx context.Context, t *Task, event *HistoryEvent) error
	// ReplaceAll swaps the entire task set in one write. History is untouched.
	ReplaceAll(ctx context.Context, tasks []*Task) error
	AppendHistory(ctx context.Context, event *HistoryEvent) error
	History(ctx context.Context, taskID string) ([]*HistoryEvent, error)
}
