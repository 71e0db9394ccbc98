package domain

import (
	"slices"
	"time"
)

// Priority ranks how urgently a task needs attention.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Status is the lifecycle status shared by tasks and their progress updates.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Category classifies the trade a task belongs to. It carries no behaviour.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryStructural Category = "structural"
	CategoryElectrical Category = "electrical"
	CategoryPlumbing   Category = "plumbing"
	CategoryHVAC       Category = "hvac"
	CategoryFinishing  Category = "finishing"
	CategorySafety     Category = "safety"
	CategoryInspection Category = "inspection"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryStructural, CategoryElectrical, CategoryPlumbing,
		CategoryHVAC, CategoryFinishing, CategorySafety, CategoryInspection:
		return true
	}
	return false
}

// AssignmentState is the accept/decline position of a task, derived from
// Accepted and CurrentStatus.
type AssignmentState string

const (
	AssignmentPending  AssignmentState = "pending"
	AssignmentAccepted AssignmentState = "accepted"
	AssignmentRejected AssignmentState = "rejected"
)

// Task is a unit of construction work. Sub-tasks are tasks with a parent.
type Task struct {
	ID                   string       `json:"id"`
	ProjectID            string       `json:"project_id"`
	ParentTaskID         string       `json:"parent_task_id,omitempty"`
	NestingLevel         int          `json:"nesting_level"`
	RootTaskID           string       `json:"root_task_id"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	Priority             Priority     `json:"priority"`
	Category             Category     `json:"category"`
	DueDate              *time.Time   `json:"due_date,omitempty"`
	CurrentStatus        Status       `json:"current_status"`
	CompletionPercentage int          `json:"completion_percentage"`
	AssignedTo           []string     `json:"assigned_to"`
	AssignedBy           string       `json:"assigned_by"`
	Attachments          []string     `json:"attachments,omitempty"`
	Accepted             *bool        `json:"accepted"`
	AcceptedBy           string       `json:"accepted_by,omitempty"`
	AcceptedAt           *time.Time   `json:"accepted_at,omitempty"`
	DeclineReason        string       `json:"decline_reason,omitempty"`
	ReadyForReview       bool         `json:"ready_for_review"`
	ReviewedBy           string       `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time   `json:"reviewed_at,omitempty"`
	ReviewAccepted       *bool        `json:"review_accepted,omitempty"`
	StarredByUsers       []string     `json:"starred_by_users,omitempty"`
	CancelledAt          *time.Time   `json:"cancelled_at,omitempty"`
	CancelledBy          string       `json:"cancelled_by,omitempty"`
	Updates              []TaskUpdate `json:"updates,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`

	// Children is only populated on results that embed one level of sub-tasks.
	Children []Task `json:"children,omitempty"`
}

// TaskUpdate is an immutable progress report appended to a task.
type TaskUpdate struct {
	ID                   string    `json:"id"`
	TaskID               string    `json:"task_id"`
	UserID               string    `json:"user_id"`
	Description          string    `json:"description"`
	Photos               []string  `json:"photos,omitempty"`
	CompletionPercentage int       `json:"completion_percentage"`
	Status               Status    `json:"status"`
	Timestamp            time.Time `json:"timestamp"`
}

// TaskDraft carries the caller supplied fields of a new task.
type TaskDraft struct {
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  []string   `json:"assigned_to"`
	AssignedBy  string     `json:"assigned_by"`
	Attachments []string   `json:"attachments"`
}

func (t *Task) IsTopLevel() bool {
	return t != nil && t.ParentTaskID == ""
}

func (t *Task) IsCancelled() bool {
	return t != nil && t.CancelledAt != nil
}

// IsSelfAssigned reports whether the creator is the sole assignee.
func (t *Task) IsSelfAssigned() bool {
	return t != nil && len(t.AssignedTo) == 1 && t.AssignedTo[0] == t.AssignedBy
}

func (t *Task) IsAssignedTo(userID string) bool {
	return t != nil && slices.Contains(t.AssignedTo, userID)
}

func (t *Task) IsStarredBy(userID string) bool {
	return t != nil && slices.Contains(t.StarredByUsers, userID)
}

func (t *Task) IsReviewAccepted() bool {
	return t != nil && t.ReviewAccepted != nil && *t.ReviewAccepted
}

func (t *Task) IsOverdue(reference time.Time) bool {
	if t == nil || t.DueDate == nil || t.CurrentStatus == StatusCompleted {
		return false
	}
	return t.DueDate.Before(reference)
}

func (t *Task) AssignmentState() AssignmentState {
	switch {
	case t.Accepted != nil && *t.Accepted:
		return AssignmentAccepted
	case t.CurrentStatus == StatusRejected:
		return AssignmentRejected
	default:
		return AssignmentPending
	}
}

// Root returns the id of the top-level ancestor.
func (t *Task) Root() string {
	if t.RootTaskID != "" {
		return t.RootTaskID
	}
	return t.ID
}

// Clone returns a deep copy that shares no slices or pointers with t.
func (t Task) Clone() Task {
	c := t
	c.DueDate = cloneTime(t.DueDate)
	c.AcceptedAt = cloneTime(t.AcceptedAt)
	c.ReviewedAt = cloneTime(t.ReviewedAt)
	c.CancelledAt = cloneTime(t.CancelledAt)
	c.Accepted = cloneBool(t.Accepted)
	c.ReviewAccepted = cloneBool(t.ReviewAccepted)
	c.AssignedTo = slices.Clone(t.AssignedTo)
	c.Attachments = slices.Clone(t.Attachments)
	c.StarredByUsers = slices.Clone(t.StarredByUsers)
	if t.Updates != nil {
		c.Updates = make([]TaskUpdate, len(t.Updates))
		for i, u := range t.Updates {
			u.Photos = slices.Clone(u.Photos)
			c.Updates[i] = u
		}
	}
	if t.Children != nil {
		c.Children = make([]Task, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Validate checks the required fields of a draft and fills enum defaults.
func (d *TaskDraft) Validate() error {
	switch {
	case d.ProjectID == "":
		return MissingField("project_id")
	case d.Title == "":
		return MissingField("title")
	case d.AssignedBy == "":
		return MissingField("assigned_by")
	case len(d.AssignedTo) == 0:
		return MissingField("assigned_to")
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Category == "" {
		d.Category = CategoryGeneral
	}
	if !d.Priority.IsValid() {
		return NewError(ErrCodeInvalid, "unknown priority "+string(d.Priority))
	}
	if !d.Category.IsValid() {
		return NewError(ErrCodeInvalid, "unknown category "+string(d.Category))
	}
	return nil
}

// IsSelfAccepted reports whether the creator is among the assignees, in which
// case the task starts out accepted.
func (d TaskDraft) IsSelfAccepted() bool {
	return slices.Contains(d.AssignedTo, d.AssignedBy)
}

func Bool(v bool) *bool {
	return &v
}

func Time(v time.Time) *time.Time {
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
