// Package lock provides user-level locking so that a pet's precondition check
// and state commit run as one unit.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the timeout period.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// userMutex wraps a mutex with reference counting for cleanup.
// refs counts holders plus waiters.
type userMutex struct {
	mu   sync.Mutex
	refs int
}

// UserLock provides per-user locking to prevent two concurrent actions
// for the same user from both passing a cooldown or balance check.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		locks: make(map[int64]*userMutex),
	}
}

// ref retrieves or creates the mutex for a user and registers interest in it.
func (ul *UserLock) ref(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

// Unlock releases the lock for a user.
// The entry is dropped once nobody holds or waits for it.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	if !ok {
		ul.mu.Unlock()
		return
	}
	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
	ul.mu.Unlock()
	m.mu.Unlock()
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (ul *UserLock) TryLock(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{}
		ul.locks[userID] = m
	}
	if !m.mu.TryLock() {
		return false
	}
	m.refs++
	return true
}

// LockContext acquires the lock for a user or returns ctx.Err() if the
// context ends first.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	if ul.TryLock(userID) {
		return nil
	}

	m := ul.ref(userID)
	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still acquires eventually; release on its behalf.
		go func() {
			<-done
			ul.Unlock(userID)
		}()
		return ctx.Err()
	}
}

// LockWithTimeout acquires the lock, giving up after timeout with ErrLockTimeout.
func (ul *UserLock) LockWithTimeout(ctx context.Context, userID int64, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := ul.LockContext(timeoutCtx, userID)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("user %d: %w", userID, ErrLockTimeout)
	}
	return err
}

// Len returns the number of users with a live lock entry.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
