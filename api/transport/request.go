package transport

import (
	"time"

	"github.com/fastygo/sitetasks/domain"
)

type UserUpdateRequest struct {
	DisplayName string            `json:"display_name"`
	Email       string            `json:"email"`
	Role        string            `json:"role"`
	Meta        map[string]string `json:"metadata"`
}

// CreateTaskRequest is the body of task and sub-task creation. The creator
// is always the authenticated user.
type CreateTaskRequest struct {
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  []string   `json:"assigned_to"`
	Attachments []string   `json:"attachments"`
}

func (r CreateTaskRequest) Draft(actor string) domain.TaskDraft {
	return domain.TaskDraft{
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    domain.Priority(r.Priority),
		Category:    domain.Category(r.Category),
		DueDate:     r.DueDate,
		AssignedTo:  r.AssignedTo,
		AssignedBy:  actor,
		Attachments: r.Attachments,
	}
}

// ReasonRequest carries the explanation required by declines and rejections.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

type ProgressRequest struct {
	Description          string   `json:"description"`
	Photos               []string `json:"photos"`
	CompletionPercentage int      `json:"completion_percentage"`
	Status               string   `json:"status"`
}

func (r ProgressRequest) Update(actor string) domain.TaskUpdate {
	return domain.TaskUpdate{
		UserID:               actor,
		Description:          r.Description,
		Photos:               r.Photos,
		CompletionPercentage: r.CompletionPercentage,
		Status:               domain.Status(r.Status),
	}
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	TTL    int    `json:"ttl_seconds"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UnreadResponse struct {
	UserID string `json:"user_id"`
	Unread int    `json:"unread"`
}
