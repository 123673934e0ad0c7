// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"turtle-bot/internal/config"
	"turtle-bot/internal/leaderboard"
	"turtle-bot/internal/model"
	"turtle-bot/internal/pkg/lock"
	"turtle-bot/internal/pkg/metrics"
	"turtle-bot/internal/shop"
	"turtle-bot/internal/store"
)

// Action names a pet operation.
type Action string

// Pet operations.
const (
	ActionCreate Action = "create"
	ActionFeed   Action = "feed"
	ActionUse    Action = "use"
	ActionPlay   Action = "play"
	ActionBuy    Action = "buy"
	ActionHeal   Action = "heal"
	ActionDaily  Action = "daily"
	ActionRename Action = "rename"
)

// Gateway persists full snapshots of the pet store and leaderboard.
// Save replaces everything previously saved.
type Gateway interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
}

// LevelUp describes a level transition granted by an action.
type LevelUp struct {
	Level        int
	CoinsAwarded int64
}

// ActionResult describes a successful mutation.
type ActionResult struct {
	Action Action
	Item   shop.ItemType
	// Pet is the state after the action.
	Pet *model.Pet

	HungerGained     int
	HappinessGained  int
	HealthGained     int
	ExperienceGained int
	CoinsGained      int64
	CoinsSpent       int64

	LevelUp *LevelUp
}

// InventoryItem is an owned item with its catalog entry.
type InventoryItem = shop.Stock

// PetService is the pet state engine. Every mutating call runs under the
// user's lock: precondition, mutation, leaderboard update and snapshot save
// happen as one unit.
type PetService struct {
	pets     *store.PetStore
	board    *leaderboard.Leaderboard
	catalog  *shop.Catalog
	gateway  Gateway
	userLock *lock.UserLock
	cfg      config.PetConfig
	metrics  *metrics.Metrics

	now      func() time.Time
	randIntn func(n int) int

	saveMu sync.Mutex
}

// NewPetService creates a new PetService instance.
func NewPetService(
	pets *store.PetStore,
	board *leaderboard.Leaderboard,
	catalog *shop.Catalog,
	gateway Gateway,
	userLock *lock.UserLock,
	cfg config.PetConfig,
) *PetService {
	return &PetService{
		pets:     pets,
		board:    board,
		catalog:  catalog,
		gateway:  gateway,
		userLock: userLock,
		cfg:      cfg,
		now:      time.Now,
		randIntn: rand.Intn,
	}
}

// SetClock replaces the time source.
func (s *PetService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRandom replaces the random source. randIntn must return a value in [0, n)
// and be safe for concurrent use.
func (s *PetService) SetRandom(randIntn func(n int) int) {
	s.randIntn = randIntn
}

// SetMetrics attaches metrics collectors.
func (s *PetService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Catalog returns the shop catalog the engine sells from.
func (s *PetService) Catalog() *shop.Catalog {
	return s.catalog
}

// clock returns the current time as persisted: UTC, microsecond precision.
func (s *PetService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// lock takes the user's lock, giving up with ErrBusy after the configured
// timeout so a stuck save cannot hold the user forever.
func (s *PetService) lock(ctx context.Context, userID int64) error {
	return s.userLock.LockWithTimeout(ctx, userID, s.cfg.LockTimeout)
}

// randomBetween returns a uniform integer in [lo, hi].
func (s *PetService) randomBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.randIntn(hi-lo+1)
}

// Load restores the store and leaderboard from the gateway.
// Malformed state is rejected so the process fails at startup.
func (s *PetService) Load(ctx context.Context) error {
	snap, err := s.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if snap == nil {
		snap = model.NewSnapshot()
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	s.pets.Restore(snap.Pets)
	s.board.Restore(snap.Leaderboard)
	s.metrics.SetPets(s.pets.Len())

	log.Info().
		Int("pets", s.pets.Len()).
		Int("leaderboard", s.board.Len()).
		Msg("Pet state loaded")
	return nil
}

// newPet builds a pet with the starting values.
func (s *PetService) newPet(userID int64, username string) *model.Pet {
	return &model.Pet{
		UserID:     userID,
		Username:   username,
		Name:       s.cfg.DefaultName,
		Level:      1,
		Experience: 0,
		Hunger:     model.MaxStat,
		Happiness:  model.MaxStat,
		Health:     model.MaxStat,
		Coins:      s.cfg.StartingCoins,
		Inventory:  make(map[string]int),
		CreatedAt:  s.clock(),
	}
}

// EnsurePet returns the user's pet, creating it on first contact.
// The stored username is refreshed when it changed.
// Returns the pet and whether it was newly created.
func (s *PetService) EnsurePet(ctx context.Context, userID int64, username string) (*model.Pet, bool, error) {
	if err := s.lock(ctx, userID); err != nil {
		return nil, false, err
	}
	defer s.userLock.Unlock(userID)

	if p, err := s.pets.Get(userID); err == nil {
		if username == "" || p.Username == username {
			return p, false, nil
		}
		p.Username = username
		s.pets.Put(p)
		return p, false, s.save(ctx)
	}

	p, created := s.pets.Create(s.newPet(userID, username))
	if !created {
		return p, false, nil
	}
	s.metrics.ObserveAction(string(ActionCreate), "ok")
	s.metrics.SetPets(s.pets.Len())
	log.Info().Int64("user_id", userID).Str("username", username).Msg("Pet created")

	return p, true, s.save(ctx)
}

// mutate runs fn on a private copy of the user's pet under the user's lock,
// commits it, records a level-up on the leaderboard and saves the snapshot.
// On a persistence failure the result is still returned with the error.
func (s *PetService) mutate(ctx context.Context, action Action, userID int64, fn func(p *model.Pet, res *ActionResult) error) (*ActionResult, error) {
	if err := s.lock(ctx, userID); err != nil {
		s.metrics.ObserveAction(string(action), outcomeOf(err))
		return nil, err
	}
	defer s.userLock.Unlock(userID)

	p, err := s.pets.Get(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		s.metrics.ObserveAction(string(action), outcomeOf(err))
		return nil, err
	}

	res := &ActionResult{Action: action}
	if err := fn(p, res); err != nil {
		s.metrics.ObserveAction(string(action), outcomeOf(err))
		return nil, err
	}

	s.pets.Put(p)
	res.Pet = p

	if res.LevelUp != nil {
		s.board.RecordLevel(userID, p.Username, res.LevelUp.Level)
		s.metrics.ObserveLevelUp()
		log.Info().
			Int64("user_id", userID).
			Int("level", res.LevelUp.Level).
			Int64("coins", res.LevelUp.CoinsAwarded).
			Msg("Pet leveled up")
	}

	err = s.save(ctx)
	s.metrics.ObserveAction(string(action), outcomeOf(err))
	return res, err
}

// save writes the full snapshot. Saves are serialized and the snapshot is
// taken inside the critical section, so the last write carries the latest state.
func (s *PetService) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := &model.Snapshot{
		Pets:        s.pets.Snapshot(),
		Leaderboard: s.board.Entries(),
	}

	start := time.Now()
	err := s.gateway.Save(ctx, snap)
	s.metrics.ObserveSave(time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Int("pets", len(snap.Pets)).Msg("Failed to persist snapshot")
		return &PersistenceError{Err: err}
	}
	return nil
}

// clamp bounds an attribute to [MinStat, MaxStat].
func clamp(v int) int {
	if v < model.MinStat {
		return model.MinStat
	}
	if v > model.MaxStat {
		return model.MaxStat
	}
	return v
}

// applyEffects adds item deltas with clamping and records what was applied.
func applyEffects(p *model.Pet, e shop.Effects, res *ActionResult) {
	before := [3]int{p.Hunger, p.Happiness, p.Health}
	p.Hunger = clamp(p.Hunger + e.Hunger)
	p.Happiness = clamp(p.Happiness + e.Happiness)
	p.Health = clamp(p.Health + e.Health)
	res.HungerGained += p.Hunger - before[0]
	res.HappinessGained += p.Happiness - before[1]
	res.HealthGained += p.Health - before[2]
}

// gainExperience adds experience and resolves at most one level transition.
// Experience above the threshold is discarded.
func (s *PetService) gainExperience(p *model.Pet, exp int, res *ActionResult) {
	p.Experience += exp
	res.ExperienceGained += exp

	if p.Experience < p.ExperienceToNextLevel() {
		return
	}
	p.Level++
	p.Experience = 0
	coins := int64(p.Level) * s.cfg.LevelUpCoins
	p.Coins += coins
	res.LevelUp = &LevelUp{Level: p.Level, CoinsAwarded: coins}
}

// Feed gives the pet an edible item from the inventory.
func (s *PetService) Feed(ctx context.Context, userID int64, itemType shop.ItemType) (*ActionResult, error) {
	item, err := s.catalog.GetItem(itemType)
	if err != nil {
		s.metrics.ObserveAction(string(ActionFeed), outcomeOf(err))
		return nil, err
	}
	if !item.IsEdible() {
		err := fmt.Errorf("%w: %s is not food", ErrItemNotOwned, itemType)
		s.metrics.ObserveAction(string(ActionFeed), outcomeOf(err))
		return nil, err
	}
	return s.mutate(ctx, ActionFeed, userID, s.consume(item))
}

// UseItem uses any owned catalog item on the pet.
func (s *PetService) UseItem(ctx context.Context, userID int64, itemType shop.ItemType) (*ActionResult, error) {
	item, err := s.catalog.GetItem(itemType)
	if err != nil {
		s.metrics.ObserveAction(string(ActionUse), outcomeOf(err))
		return nil, err
	}
	return s.mutate(ctx, ActionUse, userID, s.consume(item))
}

// consume takes one copy of item, applies its effects and grants feed experience.
func (s *PetService) consume(item shop.ItemConfig) func(*model.Pet, *ActionResult) error {
	return func(p *model.Pet, res *ActionResult) error {
		res.Item = item.Type
		if !p.TakeItem(string(item.Type)) {
			return fmt.Errorf("%w: %s", ErrItemNotOwned, item.Type)
		}
		applyEffects(p, item.Effects, res)
		s.gainExperience(p, s.cfg.FeedExperience, res)
		return nil
	}
}

// Play plays with the pet once per play cooldown.
func (s *PetService) Play(ctx context.Context, userID int64) (*ActionResult, error) {
	return s.mutate(ctx, ActionPlay, userID, func(p *model.Pet, res *ActionResult) error {
		now := s.clock()
		if remaining := CooldownRemaining(p.LastPlayedAt, s.cfg.PlayCooldown, now); remaining > 0 {
			return &CooldownError{Action: ActionPlay, Remaining: remaining}
		}

		gain := s.randomBetween(s.cfg.PlayHappinessMin, s.cfg.PlayHappinessMax)
		before := p.Happiness
		p.Happiness = clamp(p.Happiness + gain)
		res.HappinessGained = p.Happiness - before
		p.LastPlayedAt = &now
		s.gainExperience(p, s.cfg.PlayExperience, res)
		return nil
	})
}

// Buy purchases one copy of an item.
func (s *PetService) Buy(ctx context.Context, userID int64, itemType shop.ItemType) (*ActionResult, error) {
	price, err := s.catalog.PriceOf(itemType)
	if err != nil {
		s.metrics.ObserveAction(string(ActionBuy), outcomeOf(err))
		return nil, err
	}

	return s.mutate(ctx, ActionBuy, userID, func(p *model.Pet, res *ActionResult) error {
		res.Item = itemType
		if p.Coins < price {
			return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientFunds, itemType, price, p.Coins)
		}
		p.Coins -= price
		p.AddItem(string(itemType), 1)
		res.CoinsSpent = price
		return nil
	})
}

// Heal uses the healing item to restore health.
func (s *PetService) Heal(ctx context.Context, userID int64) (*ActionResult, error) {
	medicine := s.catalog.HealingItem()

	return s.mutate(ctx, ActionHeal, userID, func(p *model.Pet, res *ActionResult) error {
		res.Item = medicine.Type
		if !p.TakeItem(string(medicine.Type)) {
			return fmt.Errorf("%w: %s", ErrItemNotOwned, medicine.Type)
		}
		before := p.Health
		p.Health = clamp(p.Health + medicine.Effects.Health)
		res.HealthGained = p.Health - before
		return nil
	})
}

// ClaimDaily grants the daily coin reward once per daily cooldown.
func (s *PetService) ClaimDaily(ctx context.Context, userID int64) (*ActionResult, error) {
	return s.mutate(ctx, ActionDaily, userID, func(p *model.Pet, res *ActionResult) error {
		now := s.clock()
		if remaining := CooldownRemaining(p.LastDailyClaimedAt, s.cfg.DailyCooldown, now); remaining > 0 {
			return &CooldownError{Action: ActionDaily, Remaining: remaining}
		}

		reward := int64(s.randomBetween(int(s.cfg.DailyRewardMin), int(s.cfg.DailyRewardMax)))
		p.Coins += reward
		p.LastDailyClaimedAt = &now
		res.CoinsGained = reward
		return nil
	})
}

// NormalizeName trims the input and keeps its first MaxNameLength characters.
func NormalizeName(text string) (string, error) {
	name := []rune(strings.TrimSpace(text))
	if len(name) > model.MaxNameLength {
		name = name[:model.MaxNameLength]
	}
	if len(name) == 0 {
		return "", ErrInvalidName
	}
	return string(name), nil
}

// Rename sets the pet's name.
func (s *PetService) Rename(ctx context.Context, userID int64, text string) (*ActionResult, error) {
	name, err := NormalizeName(text)
	if err != nil {
		s.metrics.ObserveAction(string(ActionRename), outcomeOf(err))
		return nil, err
	}

	return s.mutate(ctx, ActionRename, userID, func(p *model.Pet, res *ActionResult) error {
		p.Name = name
		return nil
	})
}

// Status returns the user's pet.
func (s *PetService) Status(ctx context.Context, userID int64) (*model.Pet, error) {
	if err := s.lock(ctx, userID); err != nil {
		return nil, err
	}
	defer s.userLock.Unlock(userID)

	p, err := s.pets.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	return p, nil
}

// Inventory lists the owned catalog items in display order.
func (s *PetService) Inventory(ctx context.Context, userID int64) ([]InventoryItem, error) {
	p, err := s.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	var items []InventoryItem
	for _, item := range s.catalog.GetAllItems() {
		if n := p.ItemCount(string(item.Type)); n > 0 {
			items = append(items, InventoryItem{Item: item, Count: n})
		}
	}
	return items, nil
}

// TopLeaderboard returns up to n leading leaderboard entries.
func (s *PetService) TopLeaderboard(n int) []model.LeaderboardEntry {
	return s.board.Top(n)
}

// Rank returns the user's leaderboard entry and 1-based rank.
func (s *PetService) Rank(userID int64) (model.LeaderboardEntry, int, bool) {
	return s.board.Get(userID)
}
