// Property-based tests for per-user locking.
package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentCoinsSafetyProperty checks that concurrent read-modify-write
// updates of one user's coins under the lock match sequential execution.
func TestConcurrentCoinsSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		deltas := make([]int64, numOps)
		expected := initial
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-50, 50).Draw(t, "delta")
			expected += deltas[i]
		}

		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		ul := NewUserLock()
		coins := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(d int64) {
				defer wg.Done()
				if err := ul.LockContext(context.Background(), userID); err != nil {
					return
				}
				defer ul.Unlock(userID)
				coins += d
			}(d)
		}
		wg.Wait()

		if coins != expected {
			t.Fatalf("coins mismatch: expected %d, got %d", expected, coins)
		}
		if ul.Len() != 0 {
			t.Fatalf("expected lock entries to be released, %d left", ul.Len())
		}
	})
}

// TestCooldownCheckIsAtomicProperty simulates a double-tap: many goroutines
// check a "played" flag and set it. Under the lock exactly one may win.
func TestCooldownCheckIsAtomicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		attempts := rapid.IntRange(2, 30).Draw(t, "attempts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		played := false
		var wins atomic.Int32

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if err := ul.LockWithTimeout(context.Background(), userID, time.Second); err != nil {
					return
				}
				defer ul.Unlock(userID)
				if !played {
					played = true
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if wins.Load() != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins.Load())
		}
	})
}

// TestMultipleUsersIndependentLocksProperty tests that locks for different users
// are independent.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		counters := make(map[int64]*int, numUsers)
		for i := 1; i <= numUsers; i++ {
			n := 0
			counters[int64(i)] = &n
		}

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for uid := int64(1); uid <= int64(numUsers); uid++ {
			for j := 0; j < opsPerUser; j++ {
				go func(uid int64) {
					defer wg.Done()
					if err := ul.LockContext(context.Background(), uid); err != nil {
						return
					}
					defer ul.Unlock(uid)
					*counters[uid]++
				}(uid)
			}
		}
		wg.Wait()

		for uid, n := range counters {
			if *n != opsPerUser {
				t.Fatalf("user %d: expected %d ops, got %d", uid, opsPerUser, *n)
			}
		}
	})
}

// TestLockUnlockSymmetryProperty tests that every lock has a corresponding Unlock.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		cycles := rapid.IntRange(1, 50).Draw(t, "cycles")

		ul := NewUserLock()
		for i := 0; i < cycles; i++ {
			if err := ul.LockContext(context.Background(), userID); err != nil {
				t.Fatalf("lock: %v", err)
			}
			ul.Unlock(userID)
		}

		if !ul.TryLock(userID) {
			t.Fatal("lock should be available after symmetric lock/unlock cycles")
		}
		ul.Unlock(userID)
	})
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()

	require.True(t, ul.TryLock(1))
	assert.False(t, ul.TryLock(1))
	assert.True(t, ul.TryLock(2), "other users are independent")
	assert.Equal(t, 2, ul.Len())

	ul.Unlock(1)
	ul.Unlock(2)
	assert.Equal(t, 0, ul.Len())
	assert.True(t, ul.TryLock(1))
	ul.Unlock(1)
}

func TestLockContext_Cancelled(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(7))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ul.LockContext(ctx, 7)
	assert.ErrorIs(t, err, context.Canceled)

	ul.Unlock(7)

	// The abandoned waiter releases on its own.
	require.Eventually(t, func() bool { return ul.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, ul.LockContext(context.Background(), 7))
	ul.Unlock(7)
}

func TestLockWithTimeout(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(3))

	err := ul.LockWithTimeout(context.Background(), 3, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	ul.Unlock(3)
	require.Eventually(t, func() bool { return ul.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, ul.LockWithTimeout(context.Background(), 3, time.Second))
	ul.Unlock(3)
}

func TestLockWithTimeout_ParentCancelled(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(4))
	defer ul.Unlock(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ul.LockWithTimeout(ctx, 4, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}
