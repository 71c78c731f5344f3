// Package service orchestrates the task lifecycle: it validates operations
// against the workflow engine, computes due dates through the calendar,
// commits through the repository and only then emits notification and
// broadcast events.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hmuroya/taskward/internal/calendar"
	"github.com/hmuroya/taskward/internal/eventbus"
	"github.com/hmuroya/taskward/internal/notify"
	"github.com/hmuroya/taskward/internal/task"
	"github.com/hmuroya/taskward/internal/workflow"
	"github.com/hmuroya/taskward/pkg/cerr"
)

// Config carries the immutable runtime policy for the service. It is built
// once at startup from the environment and never mutated.
type Config struct {
	Calendar         calendar.Config
	ArchiveAfter     time.Duration
	Retention        time.Duration
	ReminderThrottle time.Duration
}

type TaskService struct {
	repo     task.Repository
	cfg      Config
	bus      *eventbus.Bus
	notifier *notify.Dispatcher
	now      func() time.Time
}

func New(repo task.Repository, cfg Config, bus *eventbus.Bus, notifier *notify.Dispatcher) *TaskService {
	return &TaskService{
		repo:     repo,
		cfg:      cfg,
		bus:      bus,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateTaskInput struct {
	Name      string
	Notes     string
	Category  task.Category
	Urgency   task.Urgency
	DueAt     *time.Time
	RefTicket string
	RefLink   string
}

func (s *TaskService) Create(ctx context.Context, input CreateTaskInput, actor task.Actor) (*task.Task, error) {
	if input.Name == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task name is required", nil)
	}
	category := input.Category
	if category == "" {
		category = task.CategoryGeneral
	}
	if !task.ValidCategory(category) {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown category %q", category), nil)
	}
	urgency := input.Urgency
	if urgency == "" {
		urgency = task.UrgencyGreen
	}
	if !task.ValidUrgency(urgency) {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown urgency %q", urgency), nil)
	}

	now := s.now()
	dueAt := calendar.ComputeDueAt(urgency, now, s.cfg.Calendar)
	if input.DueAt != nil {
		dueAt = *input.DueAt
	}

	t := &task.Task{
		ID:        ulid.Make().String(),
		Name:      input.Name,
		Notes:     input.Notes,
		Category:  category,
		Status:    task.StatusOpen,
		Urgency:   urgency,
		RefTicket: input.RefTicket,
		RefLink:   input.RefLink,
		DueAt:     dueAt,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor,
	}
	event := s.historyEvent(t.ID, task.ActionCreated, fmt.Sprintf("created with urgency %s", urgency), actor, now)
	if err := s.repo.Upsert(ctx, t, event); err != nil {
		return nil, err
	}

	s.emit(ctx, eventbus.EventTypeTaskCreated, notify.KindTaskCreated, t, actor,
		fmt.Sprintf("%s created task %q", actor.DisplayName, t.Name))
	return t, nil
}

func (s *TaskService) Claim(ctx context.Context, id string, actor task.Actor) (*task.Task, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanClaim(t, actor); err != nil {
		return nil, wrapWorkflowError(err)
	}

	now := s.now()
	next := t.Clone()
	next.Status = task.StatusClaimed
	assignee := actor
	next.Assignee = &assignee
	next.UpdatedAt = now

	event := s.historyEvent(next.ID, task.ActionClaimed, fmt.Sprintf("claimed by %s", actor.DisplayName), actor, now)
	if err := s.repo.Upsert(ctx, next, event); err != nil {
		return nil, err
	}

	s.emit(ctx, eventbus.EventTypeTaskClaimed, notify.KindTaskClaimed, next, actor,
		fmt.Sprintf("%s claimed task %q", actor.DisplayName, next.Name))
	return next, nil
}

func (s *TaskService) Unclaim(ctx context.Context, id string, actor task.Actor) (*task.Task, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanUnclaim(t, actor); err != nil {
		return nil, wrapWorkflowError(err)
	}

	now := s.now()
	next := t.Clone()
	next.Status = task.StatusOpen
	next.Assignee = nil
	next.UpdatedAt = now

	event := s.historyEvent(next.ID, task.ActionUnclaimed, fmt.Sprintf("unclaimed by %s", actor.DisplayName), actor, now)
	if err := s.repo.Upsert(ctx, next, event); err != nil {
		return nil, err
	}

	s.emit(ctx, eventbus.EventTypeTaskUnclaimed, notify.KindTaskUnclaimed, next, actor,
		fmt.Sprintf("%s unclaimed task %q", actor.DisplayName, next.Name))
	return next, nil
}

// Transition moves a task along an allowed edge. Edge validity is checked
// before permissions so the two rejection reasons stay distinguishable.
func (s *TaskService) Transition(ctx context.Context, id string, to task.Status, actor task.Actor, reviewNote string) (*task.Task, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanTransition(t, to); err != nil {
		return nil, wrapWorkflowError(err)
	}
	if err := workflow.Authorize(t, to, actor); err != nil {
		return nil, wrapWorkflowError(err)
	}

	now := s.now()
	next := t.Clone()
	from := next.Status
	next.Status = to
	next.UpdatedAt = now
	switch to {
	case task.StatusClaimed:
		if from == task.StatusOpen {
			assignee := actor
			next.Assignee = &assignee
		}
	case task.StatusCompleted:
		stamp := now
		next.CompletedAt = &stamp
	case task.StatusCancelled:
		stamp := now
		next.CancelledAt = &stamp
	case task.StatusArchived:
		stamp := now
		next.ArchivedAt = &stamp
	}
	if reviewNote != "" {
		next.ReviewNote = reviewNote
	}

	event := s.historyEvent(next.ID, task.ActionStatusChanged, fmt.Sprintf("%s -> %s", from, to), actor, now)
	if err := s.repo.Upsert(ctx, next, event); err != nil {
		return nil, err
	}

	s.emit(ctx, eventbus.EventTypeTaskStatusChanged, notify.KindStatusChanged, next, actor,
		fmt.Sprintf("%s moved task %q from %s to %s", actor.DisplayName, next.Name, from, to))
	return next, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context) ([]*task.Task, error) {
	return s.repo.ListAll(ctx)
}

func (s *TaskService) History(ctx context.Context, id string) ([]*task.HistoryEvent, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// NextStatuses exposes the allowed edges for a task, for request layers that
// render available actions.
func (s *TaskService) NextStatuses(ctx context.Context, id string) ([]task.Status, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return workflow.NextAllowedStatuses(t), nil
}

func (s *TaskService) historyEvent(taskID string, action task.Action, detail string, actor task.Actor, at time.Time) *task.HistoryEvent {
	return &task.HistoryEvent{
		ID:        ulid.Make().String(),
		TaskID:    taskID,
		Action:    action,
		Detail:    detail,
		Actor:     actor.DisplayName,
		CreatedAt: at,
	}
}

// emit runs after the store commit so subscribers never observe an event for
// state that failed to persist. Delivery failures are logged, not returned;
// the mutation has already succeeded.
func (s *TaskService) emit(ctx context.Context, busType eventbus.EventType, kind notify.Kind, t *task.Task, actor task.Actor, message string) {
	if err := s.notifier.Notify(ctx, kind, t, actor, message); err != nil {
		slog.WarnContext(ctx, "notification delivery failed", "task_id", t.ID, "kind", kind, "error", err)
	}
	s.bus.PublishNew(busType, t.ID, map[string]string{
		"status":   string(t.Status),
		"category": string(t.Category),
	})
}

func wrapWorkflowError(err error) error {
	var terr *workflow.TransitionError
	if errors.As(err, &terr) {
		return cerr.NewError(cerr.FailedPrecondition, terr.Error(), terr)
	}
	var perr *workflow.PermissionError
	if errors.As(err, &perr) {
		return cerr.NewError(cerr.PermissionDenied, perr.Error(), perr)
	}
	return cerr.NewError(cerr.Internal, "server error", err)
}
