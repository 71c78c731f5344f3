package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuroya/taskward/internal/calendar"
	"github.com/hmuroya/taskward/internal/eventbus"
	"github.com/hmuroya/taskward/internal/notify"
	"github.com/hmuroya/taskward/internal/task"
	"github.com/hmuroya/taskward/internal/task/repositoryimpl"
	"github.com/hmuroya/taskward/pkg/cerr"
	"github.com/hmuroya/taskward/pkg/storage"
)

// captureSink records delivered notifications for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []*notify.Event
}

func (c *captureSink) Deliver(_ context.Context, ev *notify.Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) kinds() []notify.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]notify.Kind, len(c.events))
	for i, ev := range c.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Wednesday inside business hours.
var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

var testCalendar = calendar.Config{
	Location:  time.UTC,
	StartHour: 9,
	EndHour:   18,
}

func newTestService(t *testing.T) (*TaskService, *captureSink) {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	sink := &captureSink{}
	svc := New(
		repositoryimpl.NewYAMLRepository(st),
		Config{
			Calendar:         testCalendar,
			ArchiveAfter:     14 * 24 * time.Hour,
			Retention:        90 * 24 * time.Hour,
			ReminderThrottle: 60 * time.Minute,
		},
		eventbus.New(),
		notify.NewDispatcher(map[notify.Target]notify.Sink{notify.TargetInApp: sink}),
	)
	svc.now = func() time.Time { return testNow }
	return svc, sink
}

var (
	alice = task.Actor{ID: "alice", DisplayName: "Alice"}
	bob   = task.Actor{ID: "bob", DisplayName: "Bob"}
	carol = task.Actor{ID: "carol", DisplayName: "Carol", Roles: []string{task.RoleAdmin}}
)

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "fix the build"}, alice)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, task.StatusOpen, created.Status)
	assert.Equal(t, task.CategoryGeneral, created.Category)
	assert.Equal(t, task.UrgencyGreen, created.Urgency)
	assert.Equal(t, alice, created.CreatedBy)
	// GREEN from a Wednesday morning: close of Thursday.
	assert.Equal(t, time.Date(2025, 3, 13, 18, 0, 0, 0, time.UTC), created.DueAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.True(t, got.DueAt.Equal(created.DueAt))

	events, err := svc.History(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, task.ActionCreated, events[0].Action)

	assert.Equal(t, []notify.Kind{notify.KindTaskCreated}, sink.kinds())
}

func TestCreateUrgencyDueDates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	red, err := svc.Create(ctx, CreateTaskInput{Name: "outage", Urgency: task.UrgencyRed}, alice)
	require.NoError(t, err)
	assert.True(t, red.DueAt.Equal(testNow))

	orange, err := svc.Create(ctx, CreateTaskInput{Name: "slow queries", Urgency: task.UrgencyOrange}, alice)
	require.NoError(t, err)
	assert.True(t, orange.DueAt.Equal(testNow.Add(60*time.Minute)))

	yellow, err := svc.Create(ctx, CreateTaskInput{Name: "flaky test", Urgency: task.UrgencyYellow}, alice)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC), yellow.DueAt)
}

func TestCreateExplicitDueAtWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	dueAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	created, err := svc.Create(ctx, CreateTaskInput{Name: "deadline work", Urgency: task.UrgencyRed, DueAt: &dueAt}, alice)
	require.NoError(t, err)
	assert.True(t, created.DueAt.Equal(dueAt))
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, CreateTaskInput{}, alice)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = svc.Create(ctx, CreateTaskInput{Name: "x", Category: "BOGUS"}, alice)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = svc.Create(ctx, CreateTaskInput{Name: "x", Urgency: "PURPLE"}, alice)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestClaimAndUnclaim(t *testing.T) {
	ctx := context.Background()
	svc, sink := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "triage"}, alice)
	require.NoError(t, err)

	claimed, err := svc.Claim(ctx, created.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, task.StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.Assignee)
	assert.Equal(t, bob.ID, claimed.Assignee.ID)

	// Already claimed: the edge rejects before any permission rule.
	_, err = svc.Claim(ctx, created.ID, carol)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	// Neither assignee nor admin.
	_, err = svc.Unclaim(ctx, created.ID, alice)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	reopened, err := svc.Unclaim(ctx, created.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, task.StatusOpen, reopened.Status)
	assert.Nil(t, reopened.Assignee)

	assert.Equal(t, []notify.Kind{notify.KindTaskCreated, notify.KindTaskClaimed, notify.KindTaskUnclaimed}, sink.kinds())

	events, err := svc.History(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, task.ActionClaimed, events[1].Action)
	assert.Equal(t, task.ActionUnclaimed, events[2].Action)
}

func TestClaimFraudRequiresRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "chargeback review", Category: task.CategoryFraud}, alice)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, created.ID, bob)
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	investigator := task.Actor{ID: "vera", DisplayName: "Vera", Roles: []string{task.RoleFraudInvestigator}}
	claimed, err := svc.Claim(ctx, created.ID, investigator)
	require.NoError(t, err)
	assert.Equal(t, task.StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.Assignee)
	assert.Equal(t, investigator.ID, claimed.Assignee.ID)
}

func TestTransitionStandardFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "ship it"}, alice)
	require.NoError(t, err)

	// OPEN -> COMPLETED skips the claim edge.
	_, err = svc.Transition(ctx, created.ID, task.StatusCompleted, alice, "")
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	claimed, err := svc.Transition(ctx, created.ID, task.StatusClaimed, bob, "")
	require.NoError(t, err)
	require.NotNil(t, claimed.Assignee)
	assert.Equal(t, bob.ID, claimed.Assignee.ID)

	review, err := svc.Transition(ctx, created.ID, task.StatusNeedsReview, bob, "please check the rollout plan")
	require.NoError(t, err)
	assert.Equal(t, task.StatusNeedsReview, review.Status)
	assert.Equal(t, "please check the rollout plan", review.ReviewNote)

	done, err := svc.Transition(ctx, created.ID, task.StatusCompleted, bob, "")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(testNow))

	archived, err := svc.Transition(ctx, created.ID, task.StatusArchived, carol, "")
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)
}

func TestTransitionMergeFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "merge feature branch", Category: task.CategoryMergeRequest}, alice)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, created.ID, bob)
	require.NoError(t, err)

	// Merge requests cannot jump straight to COMPLETED.
	_, err = svc.Transition(ctx, created.ID, task.StatusCompleted, bob, "")
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	for _, to := range []task.Status{task.StatusMergeDone, task.StatusMergeApproved, task.StatusCompleted} {
		got, err := svc.Transition(ctx, created.ID, to, bob, "")
		require.NoError(t, err, to)
		assert.Equal(t, to, got.Status)
	}
}

func TestTransitionCancelPermissions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "obsolete work"}, alice)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, created.ID, task.StatusCancelled, bob, "")
	assert.True(t, cerr.IsCode(err, cerr.PermissionDenied))

	cancelled, err := svc.Transition(ctx, created.ID, task.StatusCancelled, alice, "")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestNextStatuses(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, CreateTaskInput{Name: "plan"}, alice)
	require.NoError(t, err)

	next, err := svc.NextStatuses(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []task.Status{task.StatusClaimed, task.StatusCancelled}, next)
}

func TestGetUnknownTask(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Get(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	_, err = svc.History(ctx, "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
