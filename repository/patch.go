package repository

import "github.com/fastygo/sitetasks/domain"

// Column is one assignment of a partial update. List values are []string and
// are encoded by the concrete store.
type Column struct {
	Name  string
	Value interface{}
}

// PatchColumns flattens a task patch into column assignments in a stable order.
func PatchColumns(p domain.TaskPatch) []Column {
	var cols []Column
	add := func(name string, value interface{}) {
		cols = append(cols, Column{Name: name, Value: value})
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Priority != nil {
		add("priority", string(*p.Priority))
	}
	if p.Category != nil {
		add("category", string(*p.Category))
	}
	if p.DueDate != nil {
		add("due_date", *p.DueDate)
	}
	if p.CurrentStatus != nil {
		add("current_status", string(*p.CurrentStatus))
	}
	if p.CompletionPercentage != nil {
		add("completion_percentage", *p.CompletionPercentage)
	}
	if p.AssignedTo != nil {
		add("assigned_to", p.AssignedTo)
	}
	if p.Attachments != nil {
		add("attachments", p.Attachments)
	}
	if p.Accepted != nil {
		add("accepted", *p.Accepted)
	}
	if p.AcceptedBy != nil {
		add("accepted_by", *p.AcceptedBy)
	}
	if p.AcceptedAt != nil {
		add("accepted_at", *p.AcceptedAt)
	}
	if p.DeclineReason != nil {
		add("decline_reason", *p.DeclineReason)
	}
	if p.ReadyForReview != nil {
		add("ready_for_review", *p.ReadyForReview)
	}
	if p.ReviewedBy != nil {
		add("reviewed_by", *p.ReviewedBy)
	}
	if p.ReviewedAt != nil {
		add("reviewed_at", *p.ReviewedAt)
	}
	if p.ReviewAccepted != nil {
		add("review_accepted", *p.ReviewAccepted)
	}
	if p.StarredByUsers != nil {
		add("starred_by_users", p.StarredByUsers)
	}
	if p.CancelledAt != nil {
		add("cancelled_at", *p.CancelledAt)
	}
	if p.CancelledBy != nil {
		add("cancelled_by", *p.CancelledBy)
	}
	return cols
}

// MaxPage bounds an explicit page size.
const MaxPage = 1000

// ClampLimit bounds an explicit page size. Zero or less means no limit and is
// returned as 0; stores translate it into their own unbounded form.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 0
	case limit > MaxPage:
		return MaxPage
	default:
		return limit
	}
}
