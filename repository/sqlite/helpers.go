package sqlite

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil || len(items) == 0 {
		return nil
	}
	return items
}

func encodeMap(data map[string]string) interface{} {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return string(b)
}

func encodeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		return encodeList(val)
	case time.Time:
		return val.UTC()
	}
	return v
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
	return t.UTC()
}

func optionalBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
