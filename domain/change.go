package domain

import "time"

// ChangeTable names the remote collection a change notification refers to.
type ChangeTable string

const (
	ChangeTableTasks       ChangeTable = "tasks"
	ChangeTableTaskUpdates ChangeTable = "task_updates"
)

// ChangeOperation is the kind of row change observed remotely.
type ChangeOperation string

const (
	ChangeInsert ChangeOperation = "insert"
	ChangeUpdate ChangeOperation = "update"
	ChangeDelete ChangeOperation = "delete"
)

// ChangeEvent is an out-of-band notification that remote task data changed.
// TaskID is the owning task, which for task_updates rows is the parent task.
type ChangeEvent struct {
	Table     ChangeTable       `json:"table"`
	Operation ChangeOperation   `json:"operation"`
	TaskID    string            `json:"task_id,omitempty"`
	RecordID  string            `json:"record_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Targeted reports whether the event can be resolved by re-fetching one task.
func (e ChangeEvent) Targeted() bool {
	if e.TaskID == "" {
		return false
	}
	if e.Table == ChangeTableTaskUpdates {
		return true
	}
	return e.Operation == ChangeUpdate
}
