package postgres

import (
	"encoding/json"
	"time"
)

func marshalMap(data map[string]string) []byte {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return b
}

// marshalList always yields a JSON array so jsonb containment queries work.
func marshalList(items []string) []byte {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return []byte("[]")
	}
	return b
}

func unmarshalList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil
	}
	return items
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func optionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func optionalBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
