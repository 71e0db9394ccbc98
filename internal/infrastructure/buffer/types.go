package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityReadStatus = "read_status"

	OperationUpsert = "upsert"
)

// Item is an advisory write waiting for the data service to come back.
// Items sharing a Key replace each other, so only the latest write for a
// record is retried.
type Item struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Key == "" {
		i.Key = i.ID
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

func (i Item) bucketKey() []byte {
	return []byte(i.Entity + "/" + i.Key)
}
