package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuroya/taskward/internal/task"
)

var (
	creator      = task.Actor{ID: "creator", DisplayName: "Creator"}
	assignee     = task.Actor{ID: "worker", DisplayName: "Worker"}
	admin        = task.Actor{ID: "boss", DisplayName: "Boss", Roles: []string{task.RoleAdmin}}
	investigator = task.Actor{ID: "vera", DisplayName: "Vera", Roles: []string{task.RoleFraudInvestigator}}
	bystander    = task.Actor{ID: "rando", DisplayName: "Rando"}
)

func claimedTask(category task.Category) *task.Task {
	t := newTask(category, task.StatusClaimed)
	a := assignee
	t.Assignee = &a
	return t
}

func assertPermissionDenied(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var perr *PermissionError
	require.ErrorAs(t, err, &perr)
}

func TestCanClaim(t *testing.T) {
	t.Run("open task claimable by anyone", func(t *testing.T) {
		assert.NoError(t, CanClaim(newTask(task.CategoryGeneral, task.StatusOpen), bystander))
	})

	t.Run("claimed task is not claimable", func(t *testing.T) {
		err := CanClaim(claimedTask(task.CategoryGeneral), bystander)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
	})

	t.Run("fraud task requires the investigator role", func(t *testing.T) {
		fraud := newTask(task.CategoryFraud, task.StatusOpen)
		assertPermissionDenied(t, CanClaim(fraud, bystander))
		assert.NoError(t, CanClaim(fraud, investigator))
	})
}

func TestCanUnclaim(t *testing.T) {
	tk := claimedTask(task.CategoryGeneral)

	assert.NoError(t, CanUnclaim(tk, assignee))
	assert.NoError(t, CanUnclaim(tk, admin))
	assertPermissionDenied(t, CanUnclaim(tk, bystander))
	assertPermissionDenied(t, CanUnclaim(tk, creator))

	var terr *TransitionError
	require.ErrorAs(t, CanUnclaim(newTask(task.CategoryGeneral, task.StatusOpen), assignee), &terr)
}

func TestAuthorizeCancel(t *testing.T) {
	tk := newTask(task.CategoryGeneral, task.StatusOpen)

	assert.NoError(t, Authorize(tk, task.StatusCancelled, creator))
	assert.NoError(t, Authorize(tk, task.StatusCancelled, admin))
	assertPermissionDenied(t, Authorize(tk, task.StatusCancelled, bystander))
}

func TestAuthorizeNeedsReview(t *testing.T) {
	tk := claimedTask(task.CategoryGeneral)

	assert.NoError(t, Authorize(tk, task.StatusNeedsReview, creator))
	assert.NoError(t, Authorize(tk, task.StatusNeedsReview, assignee))
	// Admin has no special standing here.
	assertPermissionDenied(t, Authorize(tk, task.StatusNeedsReview, admin))
}

func TestAuthorizeResolveReview(t *testing.T) {
	tk := claimedTask(task.CategoryGeneral)
	tk.Status = task.StatusNeedsReview

	for _, actor := range []task.Actor{creator, assignee, admin} {
		assert.NoError(t, Authorize(tk, task.StatusClaimed, actor), actor.ID)
		assert.NoError(t, Authorize(tk, task.StatusCompleted, actor), actor.ID)
	}
	assertPermissionDenied(t, Authorize(tk, task.StatusClaimed, bystander))
}

func TestAuthorizeComplete(t *testing.T) {
	tk := claimedTask(task.CategoryGeneral)

	assert.NoError(t, Authorize(tk, task.StatusCompleted, assignee))
	assertPermissionDenied(t, Authorize(tk, task.StatusCompleted, bystander))

	t.Run("fraud category requires the role even for the assignee", func(t *testing.T) {
		fraud := claimedTask(task.CategoryFraud)
		assertPermissionDenied(t, Authorize(fraud, task.StatusCompleted, assignee))

		withRole := claimedTask(task.CategoryFraud)
		a := investigator
		withRole.Assignee = &a
		assert.NoError(t, Authorize(withRole, task.StatusCompleted, investigator))
	})
}
