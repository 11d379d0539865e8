package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"eduscore/internal/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLocker(rdb, time.Second)
	l.retries = 2
	l.retryDelay = time.Millisecond
	return l, mr
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	release, err := l.Lock(ctx, "exam_code:EX2503")
	require.NoError(t, err)
	assert.True(t, mr.Exists("exam_code:EX2503"))

	_, err = l.Lock(ctx, "exam_code:EX2503")
	assert.True(t, errors.Is(err, common.ErrLockNotAcquired))

	release()
	assert.False(t, mr.Exists("exam_code:EX2503"))

	release2, err := l.Lock(ctx, "exam_code:EX2503")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newTestLocker(t)

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry followed by another holder.
	require.NoError(t, mr.Set("k", "someone-else"))
	release()

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
