package lock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "rec-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocal_HonoursContext(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "busy")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestLocal_UnlockIsIdempotent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(ctx, "k")
	require.NoError(t, err)
	unlock()
}

func TestLocal_ForgetsReleasedKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		unlock, err := l.Lock(ctx, fmt.Sprintf("account:%d", i))
		require.NoError(t, err)
		unlock()
	}
	assert.Zero(t, l.size())

	unlock, err := l.Lock(ctx, "busy")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "busy")
	require.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 1, l.size(), "held key survives a timed-out waiter")

	unlock()
	assert.Zero(t, l.size())
}

func TestLocal_WaiterKeepsEntryAlive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		next, err := l.Lock(ctx, "k")
		if assert.NoError(t, err) {
			acquired <- next
		}
	}()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.locks["k"] != nil && l.locks["k"].refs == 2
	}, time.Second, time.Millisecond)

	unlock()
	next := <-acquired
	assert.Equal(t, 1, l.size())
	next()
	assert.Zero(t, l.size())
}

func TestRedis_LockAndRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRedis(rdb, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:rec-1"))

	unlock()
	assert.False(t, mr.Exists("lock:rec-1"))
}

func TestRedis_ContendedLockFails(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRedis(rdb, time.Minute)

	unlock, err := l.Lock(context.Background(), "rec-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "rec-1")
	assert.Error(t, err)
}
