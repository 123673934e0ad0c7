// Package leaderboard ranks users by the highest level their pet has reached.
package leaderboard

import (
	"sync"

	"turtle-bot/internal/model"
)

// Leaderboard keeps at most one entry per user, ordered by level descending.
// Among equal levels, the user who reached the level first ranks higher.
type Leaderboard struct {
	mu      sync.RWMutex
	entries []model.LeaderboardEntry
}

// New creates an empty leaderboard.
func New() *Leaderboard {
	return &Leaderboard{}
}

// RecordLevel inserts or updates the user's entry.
// Levels only ratchet upward; a lower or equal level only refreshes the display name.
// Returns true if the ranking changed.
func (l *Leaderboard) RecordLevel(userID int64, displayName string, level int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].UserID != userID {
			continue
		}
		l.entries[i].DisplayName = displayName
		if level <= l.entries[i].Level {
			return false
		}
		entry := l.entries[i]
		entry.Level = level
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		l.insert(entry)
		return true
	}

	l.insert(model.LeaderboardEntry{UserID: userID, DisplayName: displayName, Level: level})
	return true
}

// insert places e after every entry whose level is >= e.Level.
func (l *Leaderboard) insert(e model.LeaderboardEntry) {
	pos := len(l.entries)
	for i, cur := range l.entries {
		if cur.Level < e.Level {
			pos = i
			break
		}
	}
	l.entries = append(l.entries, model.LeaderboardEntry{})
	copy(l.entries[pos+1:], l.entries[pos:])
	l.entries[pos] = e
}

// Top returns up to n leading entries.
func (l *Leaderboard) Top(n int) []model.LeaderboardEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]model.LeaderboardEntry, n)
	copy(out, l.entries[:n])
	return out
}

// Entries returns a copy of the whole ranking.
func (l *Leaderboard) Entries() []model.LeaderboardEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.LeaderboardEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Get returns the user's entry and rank (1-based).
func (l *Leaderboard) Get(userID int64) (model.LeaderboardEntry, int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, e := range l.entries {
		if e.UserID == userID {
			return e, i + 1, true
		}
	}
	return model.LeaderboardEntry{}, 0, false
}

// Len returns the number of ranked users.
func (l *Leaderboard) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Restore replaces the ranking with persisted entries. Persisted order is
// kept for equal levels; a duplicated user keeps its highest level.
func (l *Leaderboard) Restore(entries []model.LeaderboardEntry) {
	best := make(map[int64]model.LeaderboardEntry, len(entries))
	order := make([]int64, 0, len(entries))
	for _, e := range entries {
		cur, ok := best[e.UserID]
		if !ok {
			order = append(order, e.UserID)
			best[e.UserID] = e
			continue
		}
		if e.Level > cur.Level {
			best[e.UserID] = e
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]model.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		l.insert(best[id])
	}
}
