// Package shop provides the static item catalog used by the pet economy.
package shop

import (
	"errors"
	"fmt"
)

// ErrUnknownItem is returned when an item identifier is not in the catalog.
var ErrUnknownItem = errors.New("unknown item")

// ItemType identifies a catalog item.
type ItemType string

// Catalog items.
const (
	ItemSalad    ItemType = "salad"
	ItemFish     ItemType = "fish"
	ItemShrimp   ItemType = "shrimp"
	ItemVitamins ItemType = "vitamins"
	ItemToy      ItemType = "toy"
	ItemMedicine ItemType = "medicine"
)

// ItemCategory represents the category of an item
type ItemCategory string

const (
	CategoryFood     ItemCategory = "food"
	CategoryCare     ItemCategory = "care"
	CategoryMedicine ItemCategory = "medicine"
)

// Effects are additive attribute deltas applied when an item is used.
// Zero means the item does not touch that attribute.
type Effects struct {
	Hunger    int
	Happiness int
	Health    int
}

// IsZero reports whether the item changes nothing.
func (e Effects) IsZero() bool {
	return e.Hunger == 0 && e.Happiness == 0 && e.Health == 0
}

// ItemConfig holds the configuration for a shop item
type ItemConfig struct {
	Type        ItemType
	Name        string
	Emoji       string
	Price       int64
	Effects     Effects
	Description string
	Category    ItemCategory
}

// IsEdible reports whether the item can be fed to the pet.
func (c ItemConfig) IsEdible() bool {
	return c.Category == CategoryFood
}

// Catalog is an immutable set of items with a fixed display order.
type Catalog struct {
	items   map[ItemType]ItemConfig
	order   []ItemType
	healing ItemType
}

// NewCatalog builds a catalog from items in display order.
// healing names the item consumed by the heal action.
func NewCatalog(healing ItemType, items ...ItemConfig) (*Catalog, error) {
	c := &Catalog{
		items:   make(map[ItemType]ItemConfig, len(items)),
		order:   make([]ItemType, 0, len(items)),
		healing: healing,
	}
	for _, item := range items {
		if item.Type == "" {
			return nil, fmt.Errorf("item with empty identifier")
		}
		if _, dup := c.items[item.Type]; dup {
			return nil, fmt.Errorf("duplicate item %q", item.Type)
		}
		if item.Price <= 0 {
			return nil, fmt.Errorf("item %q: price must be positive", item.Type)
		}
		if item.Effects.Hunger < 0 || item.Effects.Happiness < 0 || item.Effects.Health < 0 {
			return nil, fmt.Errorf("item %q: effects must not be negative", item.Type)
		}
		if item.Effects.IsZero() {
			return nil, fmt.Errorf("item %q has no effect", item.Type)
		}
		c.items[item.Type] = item
		c.order = append(c.order, item.Type)
	}
	h, ok := c.items[healing]
	if !ok {
		return nil, fmt.Errorf("healing item %q: %w", healing, ErrUnknownItem)
	}
	if h.Effects.Health <= 0 {
		return nil, fmt.Errorf("healing item %q has no health effect", healing)
	}
	return c, nil
}

// defaultItems is the shop price list.
var defaultItems = []ItemConfig{
	{
		Type:        ItemSalad,
		Name:        "Salad",
		Emoji:       "🥗",
		Price:       10,
		Effects:     Effects{Hunger: 15, Happiness: 5},
		Description: "Light snack: +15 hunger, +5 happiness",
		Category:    CategoryFood,
	},
	{
		Type:        ItemFish,
		Name:        "Fish",
		Emoji:       "🐟",
		Price:       20,
		Effects:     Effects{Hunger: 30, Happiness: 10},
		Description: "Fresh fish: +30 hunger, +10 happiness",
		Category:    CategoryFood,
	},
	{
		Type:        ItemShrimp,
		Name:        "Shrimp",
		Emoji:       "🦐",
		Price:       35,
		Effects:     Effects{Hunger: 50, Happiness: 15},
		Description: "A feast: +50 hunger, +15 happiness",
		Category:    CategoryFood,
	},
	{
		Type:        ItemVitamins,
		Name:        "Vitamins",
		Emoji:       "💊",
		Price:       50,
		Effects:     Effects{Happiness: 30, Health: 10},
		Description: "+30 happiness, +10 health",
		Category:    CategoryCare,
	},
	{
		Type:        ItemToy,
		Name:        "Toy",
		Emoji:       "🧸",
		Price:       40,
		Effects:     Effects{Happiness: 25},
		Description: "+25 happiness",
		Category:    CategoryCare,
	},
	{
		Type:        ItemMedicine,
		Name:        "Medicine",
		Emoji:       "💉",
		Price:       60,
		Effects:     Effects{Health: 30},
		Description: "Cures the turtle: +30 health",
		Category:    CategoryMedicine,
	},
}

var defaultCatalog = mustCatalog(NewCatalog(ItemMedicine, defaultItems...))

func mustCatalog(c *Catalog, err error) *Catalog {
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

// GetAllItems returns all items in display order
func (c *Catalog) GetAllItems() []ItemConfig {
	items := make([]ItemConfig, 0, len(c.order))
	for _, itemType := range c.order {
		items = append(items, c.items[itemType])
	}
	return items
}

// GetItem returns the item config for a given type
func (c *Catalog) GetItem(itemType ItemType) (ItemConfig, error) {
	item, ok := c.items[itemType]
	if !ok {
		return ItemConfig{}, fmt.Errorf("%w: %q", ErrUnknownItem, itemType)
	}
	return item, nil
}

// PriceOf returns the item price in coins.
func (c *Catalog) PriceOf(itemType ItemType) (int64, error) {
	item, err := c.GetItem(itemType)
	if err != nil {
		return 0, err
	}
	return item.Price, nil
}

// IsEdible reports whether the item exists and is food.
func (c *Catalog) IsEdible(itemType ItemType) bool {
	item, ok := c.items[itemType]
	return ok && item.IsEdible()
}

// HealingItem returns the item consumed by healing.
func (c *Catalog) HealingItem() ItemConfig {
	return c.items[c.healing]
}
