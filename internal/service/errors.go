package service

import (
	"errors"
	"fmt"
	"time"

	"turtle-bot/internal/pkg/lock"
	"turtle-bot/internal/shop"
)

// Pet engine errors. All of them except ErrPersistence are expected,
// user-facing outcomes.
var (
	ErrItemNotOwned      = errors.New("item not owned")
	ErrUnknownItem       = shop.ErrUnknownItem
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOnCooldown        = errors.New("action on cooldown")
	ErrInvalidName       = errors.New("invalid name")
	ErrUserNotFound      = errors.New("user not found")
	ErrBusy              = lock.ErrLockTimeout
	ErrPersistence       = errors.New("persistence failure")
)

// CooldownError reports how long the user has to wait before retrying.
// errors.Is(err, ErrOnCooldown) holds for it. Remaining is always positive.
type CooldownError struct {
	Action    Action
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown: %dh %dm left", e.Action, e.Hours(), e.Minutes())
}

// Is matches ErrOnCooldown.
func (e *CooldownError) Is(target error) bool {
	return target == ErrOnCooldown
}

func (e *CooldownError) seconds() int64 {
	return int64(e.Remaining / time.Second)
}

// Hours returns the whole hours of the remaining wait.
func (e *CooldownError) Hours() int {
	return int(e.seconds() / 3600)
}

// Minutes returns the minutes left after whole hours.
func (e *CooldownError) Minutes() int {
	return int((e.seconds() % 3600) / 60)
}

// PersistenceError wraps a failed snapshot save. The in-memory change that
// triggered the save is kept.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPersistence, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// outcomeOf maps an engine error to a metrics label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOnCooldown):
		return "on_cooldown"
	case errors.Is(err, ErrItemNotOwned):
		return "item_not_owned"
	case errors.Is(err, ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
