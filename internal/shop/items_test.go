package shop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	tests := []struct {
		item    ItemType
		price   int64
		effects Effects
		edible  bool
	}{
		{ItemSalad, 10, Effects{Hunger: 15, Happiness: 5}, true},
		{ItemFish, 20, Effects{Hunger: 30, Happiness: 10}, true},
		{ItemShrimp, 35, Effects{Hunger: 50, Happiness: 15}, true},
		{ItemVitamins, 50, Effects{Happiness: 30, Health: 10}, false},
		{ItemToy, 40, Effects{Happiness: 25}, false},
		{ItemMedicine, 60, Effects{Health: 30}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.item), func(t *testing.T) {
			price, err := c.PriceOf(tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.price, price)

			item, err := c.GetItem(tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.effects, item.Effects)

			assert.Equal(t, tt.edible, c.IsEdible(tt.item))
		})
	}

	assert.Equal(t, ItemMedicine, c.HealingItem().Type)
	assert.Len(t, c.GetAllItems(), 6)
}

func TestCatalog_UnknownItem(t *testing.T) {
	c := Default()

	_, err := c.PriceOf("pizza")
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = c.GetItem("pizza")
	assert.ErrorIs(t, err, ErrUnknownItem)

	assert.False(t, c.IsEdible("pizza"))
}

func TestCatalog_DisplayOrder(t *testing.T) {
	var got []ItemType
	for _, item := range Default().GetAllItems() {
		got = append(got, item.Type)
	}
	assert.Equal(t, []ItemType{ItemSalad, ItemFish, ItemShrimp, ItemVitamins, ItemToy, ItemMedicine}, got)
}

func TestNewCatalog_Rejects(t *testing.T) {
	med := ItemConfig{Type: "med", Price: 5, Effects: Effects{Health: 1}}

	_, err := NewCatalog("med", med, med)
	assert.Error(t, err, "duplicate")

	_, err = NewCatalog("med", ItemConfig{Type: "med", Price: 0, Effects: Effects{Health: 1}})
	assert.Error(t, err, "zero price")

	_, err = NewCatalog("cure", med)
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = NewCatalog("med", ItemConfig{Type: "med", Price: 5, Effects: Effects{Happiness: 1}})
	assert.ErrorContains(t, err, "no health effect")

	_, err = NewCatalog("med", med, ItemConfig{Type: "bad", Price: 5, Effects: Effects{Hunger: -1}})
	assert.Error(t, err, "negative effect")

	_, err = NewCatalog("med", med, ItemConfig{Type: "rock", Price: 5})
	assert.ErrorContains(t, err, "no effect")
}
