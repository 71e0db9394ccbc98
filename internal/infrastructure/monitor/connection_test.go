package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/internal/infrastructure/buffer"
)

func check(name string, required bool, err *error) Check {
	return Check{Name: name, Required: required, Ping: func(context.Context) error { return *err }}
}

func TestMonitorOnlineFollowsRequiredChecks(t *testing.T) {
	var dbErr, redisErr error
	m := New([]Check{check("sqlite", true, &dbErr), check("redis", false, &redisErr)}, nil, 0, nil)

	assert.False(t, m.IsOnline(), "offline until the first check")

	redisErr = errors.New("connection refused")
	m.Refresh()
	assert.True(t, m.IsOnline())
	status := m.GetStatus()
	assert.True(t, status.Services["sqlite"])
	assert.False(t, status.Services["redis"])
	assert.False(t, status.Buffer)

	dbErr = errors.New("database is locked")
	m.Refresh()
	assert.False(t, m.IsOnline())
}

func TestMonitorReportsBufferSize(t *testing.T) {
	store, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Enqueue(buffer.Item{Key: "u1:t1", Entity: buffer.EntityReadStatus}))

	m := New(nil, store, 0, nil)
	m.Refresh()

	status := m.GetStatus()
	assert.True(t, status.Buffer)
	assert.Equal(t, 1, status.BufferSize)
	assert.True(t, m.IsOnline())

	m.Start()
	m.Stop()
	m.Stop()
}
