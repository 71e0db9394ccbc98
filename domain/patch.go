package domain

import (
	"slices"
	"time"
)

// TaskPatch is a partial update of a task. Nil fields are left untouched.
// Slice fields follow the same rule: nil keeps the current value, while a
// non-nil empty slice clears it.
type TaskPatch struct {
	Title                *string    `json:"title,omitempty"`
	Description          *string    `json:"description,omitempty"`
	Priority             *Priority  `json:"priority,omitempty"`
	Category             *Category  `json:"category,omitempty"`
	DueDate              *time.Time `json:"due_date,omitempty"`
	CurrentStatus        *Status    `json:"current_status,omitempty"`
	CompletionPercentage *int       `json:"completion_percentage,omitempty"`
	AssignedTo           []string   `json:"assigned_to,omitempty"`
	Attachments          []string   `json:"attachments,omitempty"`
	Accepted             *bool      `json:"accepted,omitempty"`
	AcceptedBy           *string    `json:"accepted_by,omitempty"`
	AcceptedAt           *time.Time `json:"accepted_at,omitempty"`
	DeclineReason        *string    `json:"decline_reason,omitempty"`
	ReadyForReview       *bool      `json:"ready_for_review,omitempty"`
	ReviewedBy           *string    `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`
	ReviewAccepted       *bool      `json:"review_accepted,omitempty"`
	StarredByUsers       []string   `json:"starred_by_users,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy          *string    `json:"cancelled_by,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Category == nil &&
		p.DueDate == nil && p.CurrentStatus == nil && p.CompletionPercentage == nil &&
		p.AssignedTo == nil && p.Attachments == nil && p.Accepted == nil && p.AcceptedBy == nil &&
		p.AcceptedAt == nil && p.DeclineReason == nil && p.ReadyForReview == nil &&
		p.ReviewedBy == nil && p.ReviewedAt == nil && p.ReviewAccepted == nil &&
		p.StarredByUsers == nil && p.CancelledAt == nil && p.CancelledBy == nil
}

// Validate rejects values outside the task enums and ranges.
func (p TaskPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return MissingField("title")
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return NewError(ErrCodeInvalid, "unknown priority "+string(*p.Priority))
	}
	if p.Category != nil && !p.Category.IsValid() {
		return NewError(ErrCodeInvalid, "unknown category "+string(*p.Category))
	}
	if p.CurrentStatus != nil && !p.CurrentStatus.IsValid() {
		return NewError(ErrCodeInvalid, "unknown status "+string(*p.CurrentStatus))
	}
	if p.CompletionPercentage != nil && (*p.CompletionPercentage < 0 || *p.CompletionPercentage > 100) {
		return ErrInvalidPercentage
	}
	if p.AssignedTo != nil && len(p.AssignedTo) == 0 {
		return MissingField("assigned_to")
	}
	return nil
}

// Apply merges the patch into t.
func (p TaskPatch) Apply(t *Task) {
	if t == nil {
		return
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		t.DueDate = cloneTime(p.DueDate)
	}
	if p.CurrentStatus != nil {
		t.CurrentStatus = *p.CurrentStatus
	}
	if p.CompletionPercentage != nil {
		t.CompletionPercentage = *p.CompletionPercentage
	}
	if p.AssignedTo != nil {
		t.AssignedTo = slices.Clone(p.AssignedTo)
	}
	if p.Attachments != nil {
		t.Attachments = slices.Clone(p.Attachments)
	}
	if p.Accepted != nil {
		t.Accepted = cloneBool(p.Accepted)
	}
	if p.AcceptedBy != nil {
		t.AcceptedBy = *p.AcceptedBy
	}
	if p.AcceptedAt != nil {
		t.AcceptedAt = cloneTime(p.AcceptedAt)
	}
	if p.DeclineReason != nil {
		t.DeclineReason = *p.DeclineReason
	}
	if p.ReadyForReview != nil {
		t.ReadyForReview = *p.ReadyForReview
	}
	if p.ReviewedBy != nil {
		t.ReviewedBy = *p.ReviewedBy
	}
	if p.ReviewedAt != nil {
		t.ReviewedAt = cloneTime(p.ReviewedAt)
	}
	if p.ReviewAccepted != nil {
		t.ReviewAccepted = cloneBool(p.ReviewAccepted)
	}
	if p.StarredByUsers != nil {
		t.StarredByUsers = slices.Clone(p.StarredByUsers)
	}
	if p.CancelledAt != nil {
		t.CancelledAt = cloneTime(p.CancelledAt)
	}
	if p.CancelledBy != nil {
		t.CancelledBy = *p.CancelledBy
	}
}

func String(v string) *string {
	return &v
}

func Int(v int) *int {
	return &v
}

func StatusPtr(s Status) *Status {
	return &s
}
