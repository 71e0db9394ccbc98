package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/domain"
)

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	mine := pendingTask("t2")
	mine.AssignedTo = []string{"u3"}
	r.seed(pendingTask("t1"), mine, pendingTask("t3"))
	buf := &recordingBuffer{}
	uc := newStore(t, r, buf)
	uc.FetchAll(ctx)

	assert.Equal(t, 2, uc.UnreadCount("u2"))
	assert.False(t, uc.IsRead("u2", "t1"))

	status := uc.MarkRead(ctx, "u2", "t1")
	assert.Equal(t, testNow, status.ReadAt)
	assert.True(t, uc.IsRead("u2", "t1"))
	assert.False(t, uc.IsRead("u3", "t1"))
	assert.Equal(t, 1, uc.UnreadCount("u2"))
	assert.Equal(t, 1, uc.UnreadCount("u3"))
	assert.Contains(t, r.reads, "2:u2:t1")
	assert.Empty(t, buf.items)

	uc.MarkRead(ctx, "u2", "t1")
	assert.Equal(t, 1, uc.UnreadCount("u2"))
	assert.Len(t, r.reads, 1)

	t.Run("remote failure keeps the local mark and buffers", func(t *testing.T) {
		r.failOn("reads.Upsert", errRemote)
		defer r.heal()
		before := uc.Tasks()

		uc.MarkRead(ctx, "u2", "t3")
		assert.True(t, uc.IsRead("u2", "t3"))
		assert.Zero(t, uc.UnreadCount("u2"))
		require.Len(t, buf.items, 1)
		assert.Equal(t, "2:u2:t3", buf.items[0].Key())
		assert.Equal(t, before, uc.Tasks())
	})

	t.Run("buffer failure is swallowed", func(t *testing.T) {
		r.failOn("reads.Upsert", errRemote)
		buf.err = errors.New("bucket full")
		defer func() {
			r.heal()
			buf.err = nil
		}()

		uc.MarkRead(ctx, "u3", "t2")
		assert.True(t, uc.IsRead("u3", "t2"))
	})
}

func TestLoadReadStatus(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	r.seed(pendingTask("t1"), pendingTask("t2"))
	r.reads["u2:t1"] = domain.ReadStatus{UserID: "u2", TaskID: "t1", ReadAt: testNow.Add(-time.Hour)}
	r.reads["u2:t2"] = domain.ReadStatus{UserID: "u2", TaskID: "t2", ReadAt: testNow.Add(time.Hour)}
	r.reads["u9:t1"] = domain.ReadStatus{UserID: "u9", TaskID: "t1", ReadAt: testNow}
	uc := newStore(t, r, nil)
	uc.FetchAll(ctx)

	uc.MarkRead(ctx, "u2", "t1")
	require.NoError(t, uc.LoadReadStatus(ctx, "u2"))

	assert.True(t, uc.IsRead("u2", "t2"))
	assert.False(t, uc.IsRead("u9", "t1"))
	assert.Zero(t, uc.UnreadCount("u2"))
	assert.Equal(t, testNow, uc.ledger.entries[domain.ReadKey{UserID: "u2", TaskID: "t1"}].ReadAt)

	r.failOn("reads.ListByUser", errRemote)
	err := uc.LoadReadStatus(ctx, "u9")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemote))
	assert.False(t, uc.IsRead("u9", "t1"))
}

func TestReadMarksDoNotCollideOnSeparator(t *testing.T) {
	ctx := context.Background()
	r := newRemote()
	uc := newStore(t, r, nil)

	uc.MarkRead(ctx, "crew:7", "t1")
	assert.True(t, uc.IsRead("crew:7", "t1"))
	assert.False(t, uc.IsRead("crew", "7:t1"))

	uc.MarkRead(ctx, "crew", "7:t1")
	assert.Len(t, r.reads, 2)
}
