package domain

import (
	"strconv"
	"time"
)

// ReadStatus records when a user last opened a task. One row per (user, task).
type ReadStatus struct {
	UserID string    `json:"user_id"`
	TaskID string    `json:"task_id"`
	ReadAt time.Time `json:"read_at"`
}

// ReadKey is the composite identity of a read-status row.
type ReadKey struct {
	UserID string
	TaskID string
}

func (r ReadStatus) ID() ReadKey {
	return ReadKey{UserID: r.UserID, TaskID: r.TaskID}
}

// Key encodes the identity for string-keyed stores. The user id is length
// prefixed, so ids containing the separator cannot collide.
func (r ReadStatus) Key() string {
	return strconv.Itoa(len(r.UserID)) + ":" + r.UserID + ":" + r.TaskID
}
