// Package notify produces notification events for task mutations and fans
// each one out to the configured delivery targets. Actual transport beyond
// the sinks here is an external concern.
package notify

import (
	"context"
	"time"

	"github.com/hmuroya/taskward/internal/task"
)

type Kind string

const (
	KindTaskCreated   Kind = "task_created"
	KindTaskClaimed   Kind = "task_claimed"
	KindTaskUnclaimed Kind = "task_unclaimed"
	KindStatusChanged Kind = "status_changed"
	KindReminder      Kind = "reminder"
)

type Target string

const (
	TargetInApp         Target = "in_app"
	TargetDirectMessage Target = "direct_message"
	TargetChannel       Target = "channel"
)

// AllTargets is the fan-out set: every mutation produces one event per target.
var AllTargets = []Target{TargetInApp, TargetDirectMessage, TargetChannel}

type Event struct {
	Kind      Kind       `json:"kind"`
	Task      *task.Task `json:"task"`
	Actor     task.Actor `json:"actor"`
	Message   string     `json:"message"`
	Target    Target     `json:"target"`
	CreatedAt time.Time  `json:"created_at"`
}

// Sink delivers one notification event to one target.
type Sink interface {
	Deliver(ctx context.Context, event *Event) error
}
