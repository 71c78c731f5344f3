package task

import (
	"slices"
	"time"
)

type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusClaimed       Status = "CLAIMED"
	StatusNeedsReview   Status = "NEEDS_REVIEW"
	StatusMergeDone     Status = "MERGE_DONE"
	StatusMergeApproved Status = "MERGE_APPROVED"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
	StatusArchived      Status = "ARCHIVED"
)

type Urgency string

const (
	UrgencyGreen  Urgency = "GREEN"
	UrgencyYellow Urgency = "YELLOW"
	UrgencyOrange Urgency = "ORANGE"
	UrgencyRed    Urgency = "RED"
)

type Category string

const (
	CategoryGeneral      Category = "GENERAL"
	CategorySupport      Category = "SUPPORT"
	CategoryMergeRequest Category = "MERGE_REQUEST"
	CategoryFraud        Category = "FRAUD"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryGeneral, CategorySupport, CategoryMergeRequest, CategoryFraud:
		return true
	}
	return false
}

func ValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyGreen, UrgencyYellow, UrgencyOrange, UrgencyRed:
		return true
	}
	return false
}

const (
	RoleAdmin             = "admin"
	RoleFraudInvestigator = "fraud-investigator"
)

// Actor identifies who performs an operation. Identity resolution happens in
// the request layer; the core only checks IDs and roles.
type Actor struct {
	ID          string   `yaml:"id" json:"id"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	Roles       []string `yaml:"roles,omitempty" json:"roles,omitempty"`
}

func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

type Task struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Notes     string   `yaml:"notes,omitempty" json:"notes,omitempty"`
	Category  Category `yaml:"category" json:"category"`
	Status    Status   `yaml:"status" json:"status"`
	Urgency   Urgency  `yaml:"urgency" json:"urgency"`
	RefTicket string   `yaml:"ref_ticket,omitempty" json:"ref_ticket,omitempty"`
	RefLink   string   `yaml:"ref_link,omitempty" json:"ref_link,omitempty"`

	DueAt     time.Time `yaml:"due_at" json:"due_at"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`

	CreatedBy Actor  `yaml:"created_by" json:"created_by"`
	Assignee  *Actor `yaml:"assignee,omitempty" json:"assignee,omitempty"`

	CompletedAt    *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt    *time.Time `yaml:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	ArchivedAt     *time.Time `yaml:"archived_at,omitempty" json:"archived_at,omitempty"`
	LastReminderAt *time.Time `yaml:"last_reminder_at,omitempty" json:"last_reminder_at,omitempty"`

	ReviewNote string `yaml:"review_note,omitempty" json:"review_note,omitempty"`
}

// Clone returns a deep copy. Transitions construct the next state on a copy;
// the repository is the only place a task is replaced by id.
func (t *Task) Clone() *Task {
	next := *t
	if t.Assignee != nil {
		a := *t.Assignee
		next.Assignee = &a
	}
	next.CompletedAt = cloneTime(t.CompletedAt)
	next.CancelledAt = cloneTime(t.CancelledAt)
	next.ArchivedAt = cloneTime(t.ArchivedAt)
	next.LastReminderAt = cloneTime(t.LastReminderAt)
	return &next
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

type Action string

const (
	ActionCreated       Action = "created"
	ActionClaimed       Action = "claimed"
	ActionUnclaimed     Action = "unclaimed"
	ActionStatusChanged Action = "status_changed"
	ActionReminded      Action = "reminded"
	ActionArchived      Action = "archived"
)

// HistoryEvent is an append-only audit record; one is written per task
// mutation and never updated afterwards.
type HistoryEvent struct {
	ID        string    `yaml:"id" json:"id"`
	TaskID    string    `yaml:"task_id" json:"task_id"`
	Action    Action    `yaml:"action" json:"action"`
	Detail    string    `yaml:"detail,omitempty" json:"detail,omitempty"`
	Actor     string    `yaml:"actor" json:"actor"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}
