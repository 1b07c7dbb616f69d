package objectstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ListFiltersByPrefixInKeyOrder(t *testing.T) {
	m := NewMemory("git-backups")
	now := time.Now()
	m.Put("acme/b/repo/2025-01-02-0000.zip", 2, now)
	m.Put("acme/a/repo/2025-01-01-0000.zip", 1, now)
	m.Put("other/a/repo/2025-01-01-0000.zip", 3, now)

	objects, err := m.List(context.Background(), "acme/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "acme/a/repo/2025-01-01-0000.zip", objects[0].Key)
	assert.Equal(t, "acme/b/repo/2025-01-02-0000.zip", objects[1].Key)
	assert.Equal(t, 1, m.Calls("list"))
}

func TestMemory_StatMissing(t *testing.T) {
	m := NewMemory("git-backups")

	_, err := m.Stat(context.Background(), "nope.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.True(t, m.IsPermanentError(err))
}

func TestMemory_FailNextIsConsumedInOrder(t *testing.T) {
	m := NewMemory("git-backups")
	transient := errors.New("503 server busy")
	m.FailNext("list", transient, Permanent(errors.New("403 forbidden")))

	_, err := m.List(context.Background(), "")
	assert.ErrorIs(t, err, transient)
	assert.False(t, m.IsPermanentError(err))

	_, err = m.List(context.Background(), "")
	require.Error(t, err)
	assert.True(t, m.IsPermanentError(err))

	_, err = m.List(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, 3, m.Calls("list"))
}

func TestMemory_SignedURLIsReadScoped(t *testing.T) {
	m := NewMemory("git-backups")
	expires := time.Date(2025, 2, 1, 12, 15, 0, 0, time.UTC)

	u, err := m.SignedURL(context.Background(), "acme/p/r/2025-02-01-1200.zip", expires)
	require.NoError(t, err)
	assert.Contains(t, u, "acme/p/r/2025-02-01-1200.zip")
	assert.Contains(t, u, "sp=r")
	assert.Contains(t, u, "se=2025-02-01T12%3A15%3A00Z")
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory("git-backups")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls("list"))
}
