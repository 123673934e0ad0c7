// Package model defines the data models for the turtle pet bot.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Stat bounds shared by hunger, happiness and health.
const (
	MinStat = 0
	MaxStat = 100
)

// MaxNameLength is the maximum pet name length in characters.
const MaxNameLength = 20

// ErrInvalidRecord is returned by Validate when a persisted record breaks an invariant.
var ErrInvalidRecord = errors.New("invalid pet record")

// Pet is the per-user simulated turtle.
// A user owns exactly one pet; the record is never deleted.
type Pet struct {
	UserID             int64          `json:"user_id" toml:"user_id" db:"user_id"`
	Username           string         `json:"username" toml:"username" db:"username"`
	Name               string         `json:"name" toml:"name" db:"name"`
	Level              int            `json:"level" toml:"level" db:"level"`
	Experience         int            `json:"experience" toml:"experience" db:"experience"`
	Hunger             int            `json:"hunger" toml:"hunger" db:"hunger"`
	Happiness          int            `json:"happiness" toml:"happiness" db:"happiness"`
	Health             int            `json:"health" toml:"health" db:"health"`
	Coins              int64          `json:"coins" toml:"coins" db:"coins"`
	Inventory          map[string]int `json:"inventory" toml:"inventory" db:"inventory"`
	LastPlayedAt       *time.Time     `json:"last_played_at,omitempty" toml:"last_played_at,omitempty" db:"last_played_at"`
	LastDailyClaimedAt *time.Time     `json:"last_daily_claimed_at,omitempty" toml:"last_daily_claimed_at,omitempty" db:"last_daily_claimed_at"`
	CreatedAt          time.Time      `json:"created_at" toml:"created_at" db:"created_at"`
}

// ExperienceToNextLevel returns the experience threshold of the current level.
func (p *Pet) ExperienceToNextLevel() int {
	return p.Level * 10
}

// ItemCount returns how many copies of an item the pet owns.
func (p *Pet) ItemCount(item string) int {
	return p.Inventory[item]
}

// AddItem adds n copies of an item to the inventory.
func (p *Pet) AddItem(item string, n int) {
	if n <= 0 {
		return
	}
	if p.Inventory == nil {
		p.Inventory = make(map[string]int)
	}
	p.Inventory[item] += n
}

// TakeItem removes one copy of an item, deleting the key when the last copy is used.
// Returns false if the item is not owned.
func (p *Pet) TakeItem(item string) bool {
	count := p.Inventory[item]
	if count <= 0 {
		return false
	}
	if count == 1 {
		delete(p.Inventory, item)
	} else {
		p.Inventory[item] = count - 1
	}
	return true
}

// Clone returns a deep copy of the pet.
func (p *Pet) Clone() *Pet {
	if p == nil {
		return nil
	}
	c := *p
	c.Inventory = make(map[string]int, len(p.Inventory))
	for k, v := range p.Inventory {
		c.Inventory[k] = v
	}
	if p.LastPlayedAt != nil {
		t := *p.LastPlayedAt
		c.LastPlayedAt = &t
	}
	if p.LastDailyClaimedAt != nil {
		t := *p.LastDailyClaimedAt
		c.LastDailyClaimedAt = &t
	}
	return &c
}

// Validate checks the record invariants. Used when loading persisted state.
func (p *Pet) Validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: user %d: empty name", ErrInvalidRecord, p.UserID)
	case utf8.RuneCountInString(name) > MaxNameLength:
		return fmt.Errorf("%w: user %d: name longer than %d characters", ErrInvalidRecord, p.UserID, MaxNameLength)
	case p.Level < 1:
		return fmt.Errorf("%w: user %d: level %d", ErrInvalidRecord, p.UserID, p.Level)
	case p.Experience < 0:
		return fmt.Errorf("%w: user %d: experience %d", ErrInvalidRecord, p.UserID, p.Experience)
	case p.Experience >= p.ExperienceToNextLevel():
		return fmt.Errorf("%w: user %d: experience %d reaches level %d threshold", ErrInvalidRecord, p.UserID, p.Experience, p.Level)
	case p.Coins < 0:
		return fmt.Errorf("%w: user %d: coins %d", ErrInvalidRecord, p.UserID, p.Coins)
	case p.CreatedAt.IsZero():
		return fmt.Errorf("%w: user %d: missing created_at", ErrInvalidRecord, p.UserID)
	}
	for stat, v := range map[string]int{"hunger": p.Hunger, "happiness": p.Happiness, "health": p.Health} {
		if v < MinStat || v > MaxStat {
			return fmt.Errorf("%w: user %d: %s %d out of range", ErrInvalidRecord, p.UserID, stat, v)
		}
	}
	for item, count := range p.Inventory {
		if count <= 0 {
			return fmt.Errorf("%w: user %d: item %q count %d", ErrInvalidRecord, p.UserID, item, count)
		}
	}
	return nil
}

// LeaderboardEntry is one ranked user.
// Level is the highest level the user has ever reached.
type LeaderboardEntry struct {
	UserID      int64  `json:"user_id" toml:"user_id" db:"user_id"`
	DisplayName string `json:"display_name" toml:"display_name" db:"display_name"`
	Level       int    `json:"level" toml:"level" db:"level"`
}

// Snapshot is the full persisted state: every pet plus the ordered leaderboard.
type Snapshot struct {
	Pets        map[int64]*Pet
	Leaderboard []LeaderboardEntry
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Pets: make(map[int64]*Pet)}
}

// Validate checks every pet record and the leaderboard shape.
func (s *Snapshot) Validate() error {
	for id, p := range s.Pets {
		if p == nil {
			return fmt.Errorf("%w: user %d: null record", ErrInvalidRecord, id)
		}
		if p.UserID != id {
			return fmt.Errorf("%w: key %d holds record of user %d", ErrInvalidRecord, id, p.UserID)
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[int64]bool, len(s.Leaderboard))
	for _, e := range s.Leaderboard {
		if seen[e.UserID] {
			return fmt.Errorf("%w: duplicate leaderboard entry for user %d", ErrInvalidRecord, e.UserID)
		}
		if e.Level < 1 {
			return fmt.Errorf("%w: leaderboard entry for user %d has level %d", ErrInvalidRecord, e.UserID, e.Level)
		}
		seen[e.UserID] = true
	}
	return nil
}
