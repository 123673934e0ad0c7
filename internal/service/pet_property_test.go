// Property-based tests for PetService.
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"turtle-bot/internal/model"
	"turtle-bot/internal/shop"
)

// TestAttributesStayInRangeProperty checks that any sequence of actions keeps
// hunger, happiness and health within [0, 100] and never leaves a zero count
// in the inventory.
func TestAttributesStayInRangeProperty(t *testing.T) {
	items := []shop.ItemType{
		shop.ItemSalad, shop.ItemFish, shop.ItemShrimp,
		shop.ItemVitamins, shop.ItemToy, shop.ItemMedicine,
	}

	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		f.svc.SetRandom(func(n int) int { return rapid.IntRange(0, n-1).Draw(rt, "roll") })
		f.ensure(t)
		f.edit(t, func(p *model.Pet) {
			p.Hunger = rapid.IntRange(0, 100).Draw(rt, "hunger")
			p.Happiness = rapid.IntRange(0, 100).Draw(rt, "happiness")
			p.Health = rapid.IntRange(0, 100).Draw(rt, "health")
			p.Coins = rapid.Int64Range(0, 500).Draw(rt, "coins")
		})
		ctx := context.Background()

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			item := rapid.SampledFrom(items).Draw(rt, "item")
			var err error
			switch rapid.IntRange(0, 5).Draw(rt, "op") {
			case 0:
				_, err = f.svc.Buy(ctx, testUser, item)
			case 1:
				_, err = f.svc.Feed(ctx, testUser, item)
			case 2:
				_, err = f.svc.UseItem(ctx, testUser, item)
			case 3:
				_, err = f.svc.Play(ctx, testUser)
			case 4:
				_, err = f.svc.Heal(ctx, testUser)
			case 5:
				_, err = f.svc.ClaimDaily(ctx, testUser)
			}
			if err != nil && errors.Is(err, ErrPersistence) {
				rt.Fatalf("unexpected persistence failure: %v", err)
			}
			f.clock.Advance(time.Duration(rapid.IntRange(0, 120).Draw(rt, "minutes")) * time.Minute)

			p := f.pet(t)
			for name, v := range map[string]int{"hunger": p.Hunger, "happiness": p.Happiness, "health": p.Health} {
				if v < model.MinStat || v > model.MaxStat {
					rt.Fatalf("%s out of range: %d", name, v)
				}
			}
			if p.Coins < 0 {
				rt.Fatalf("negative coins: %d", p.Coins)
			}
			if p.Experience >= p.ExperienceToNextLevel() {
				rt.Fatalf("experience %d not below threshold %d", p.Experience, p.ExperienceToNextLevel())
			}
			for item, n := range p.Inventory {
				if n <= 0 {
					rt.Fatalf("inventory holds %q with count %d", item, n)
				}
			}
		}
	})
}

// TestBuyConservesValueProperty checks that a successful purchase moves
// exactly the item price from coins into one inventory copy, and a rejected
// purchase changes nothing.
func TestBuyConservesValueProperty(t *testing.T) {
	catalog := shop.Default()

	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		f.ensure(t)
		coins := rapid.Int64Range(0, 200).Draw(rt, "coins")
		f.edit(t, func(p *model.Pet) { p.Coins = coins })
		item := rapid.SampledFrom(catalog.GetAllItems()).Draw(rt, "item")

		before := f.pet(t)
		_, err := f.svc.Buy(context.Background(), testUser, item.Type)
		after := f.pet(t)

		if coins < item.Price {
			if !errors.Is(err, ErrInsufficientFunds) {
				rt.Fatalf("expected insufficient funds, got %v", err)
			}
			if after.Coins != before.Coins || after.ItemCount(string(item.Type)) != before.ItemCount(string(item.Type)) {
				rt.Fatalf("rejected purchase changed state")
			}
			return
		}
		if err != nil {
			rt.Fatalf("purchase failed: %v", err)
		}
		if after.Coins != before.Coins-item.Price {
			rt.Fatalf("coins %d, want %d", after.Coins, before.Coins-item.Price)
		}
		if after.ItemCount(string(item.Type)) != before.ItemCount(string(item.Type))+1 {
			rt.Fatalf("item count not incremented")
		}
	})
}

// TestCooldownBoundaryProperty checks that play is rejected strictly inside
// the cooldown window and allowed from its end onwards.
func TestCooldownBoundaryProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		f.ensure(t)
		ctx := context.Background()

		_, err := f.svc.Play(ctx, testUser)
		if err != nil {
			rt.Fatalf("first play failed: %v", err)
		}

		wait := time.Duration(rapid.Int64Range(0, int64(2*time.Hour/time.Second)).Draw(rt, "wait_seconds")) * time.Second
		f.clock.Advance(wait)

		_, err = f.svc.Play(ctx, testUser)
		if wait < time.Hour {
			var cd *CooldownError
			if !errors.As(err, &cd) {
				rt.Fatalf("expected cooldown after %v, got %v", wait, err)
			}
			if cd.Remaining != time.Hour-wait {
				rt.Fatalf("remaining %v, want %v", cd.Remaining, time.Hour-wait)
			}
			return
		}
		if err != nil {
			rt.Fatalf("play after %v failed: %v", wait, err)
		}
	})
}
