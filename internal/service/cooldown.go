package service

import "time"

// CooldownRemaining returns how long is left of a cooldown window that
// started at last. A nil last (never performed) or an elapsed window yields 0.
func CooldownRemaining(last *time.Time, window time.Duration, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	remaining := last.Add(window).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return remaining
}
