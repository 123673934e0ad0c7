package shop

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Callback data sent by the inline keyboards.
const (
	CallbackFeed        = "feed"
	CallbackPlay        = "play"
	CallbackShop        = "shop"
	CallbackHeal        = "heal"
	CallbackLeaderboard = "leaderboard"
	CallbackRename      = "rename"
	CallbackDaily       = "daily"
	CallbackInventory   = "inventory"
	CallbackBack        = "back"
	CallbackBuy         = "buy:" // buy:fish
	CallbackUse         = "use:" // use:fish
)

// Stock is an owned item and how many copies the user holds.
type Stock struct {
	Item  ItemConfig
	Count int
}

// ParseCallback strips the telebot prefix and splits "buy:fish" style data
// into its action and item.
func ParseCallback(data string) (action string, item ItemType) {
	data = strings.TrimPrefix(data, "\f")
	if i := strings.Index(data, "|"); i >= 0 {
		data = data[:i]
	}
	for _, prefix := range []string{CallbackBuy, CallbackUse} {
		if strings.HasPrefix(data, prefix) {
			return prefix, ItemType(strings.TrimPrefix(data, prefix))
		}
	}
	return data, ""
}

// BuildMainMenu creates the pet care menu.
func BuildMainMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("🍽 Feed", CallbackFeed),
			markup.Data("🎾 Play", CallbackPlay),
		),
		markup.Row(
			markup.Data("🛒 Shop", CallbackShop),
			markup.Data("💊 Heal", CallbackHeal),
		),
		markup.Row(
			markup.Data("🏆 Leaders", CallbackLeaderboard),
			markup.Data("✏️ Name", CallbackRename),
		),
		markup.Row(
			markup.Data("🎁 Daily reward", CallbackDaily),
			markup.Data("🎒 Inventory", CallbackInventory),
		),
	)
	return markup
}

// BuildBackPanel creates a single back button returning to target.
func BuildBackPanel(target string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("🔙 Back", target)))
	return markup
}

// BuildShopPanel creates the shop panel with one buy button per item.
func BuildShopPanel(c *Catalog) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, item := range c.GetAllItems() {
		btn := markup.Data(
			fmt.Sprintf("%s %s - %d🪙", item.Emoji, item.Name, item.Price),
			CallbackBuy+string(item.Type),
		)
		rows = append(rows, markup.Row(btn))
	}
	rows = append(rows, markup.Row(markup.Data("🔙 Back", CallbackBack)))

	markup.Inline(rows...)
	return markup
}

// BuildFeedPanel creates one button per owned edible item.
func BuildFeedPanel(owned []Stock) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, s := range owned {
		if !s.Item.IsEdible() {
			continue
		}
		btn := markup.Data(
			fmt.Sprintf("%s %s (x%d)", s.Item.Emoji, s.Item.Name, s.Count),
			CallbackUse+string(s.Item.Type),
		)
		rows = append(rows, markup.Row(btn))
	}
	rows = append(rows, markup.Row(markup.Data("🔙 Back", CallbackBack)))

	markup.Inline(rows...)
	return markup
}

// BuildInventoryPanel offers a button for every owned item that can be used
// from the inventory. Food goes through the feed panel and the healing item
// through heal.
func BuildInventoryPanel(c *Catalog, owned []Stock) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	hasFood := false
	for _, s := range owned {
		label := fmt.Sprintf("%s Use %s (x%d)", s.Item.Emoji, s.Item.Name, s.Count)
		switch {
		case s.Item.IsEdible():
			hasFood = true
		case s.Item.Type == c.HealingItem().Type:
			rows = append(rows, markup.Row(markup.Data(label, CallbackHeal)))
		default:
			rows = append(rows, markup.Row(markup.Data(label, CallbackUse+string(s.Item.Type))))
		}
	}
	if hasFood {
		rows = append(rows, markup.Row(markup.Data("🍽 Feed", CallbackFeed)))
	}
	rows = append(rows, markup.Row(markup.Data("🔙 Back", CallbackBack)))

	markup.Inline(rows...)
	return markup
}

// BuildNoMedicinePanel offers the shop when there is nothing to heal with.
func BuildNoMedicinePanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.Data("🛒 Shop", CallbackShop)),
		markup.Row(markup.Data("🔙 Back", CallbackBack)),
	)
	return markup
}

// FormatShopMessage creates the shop welcome message
func FormatShopMessage(c *Catalog, coins int64) string {
	var b strings.Builder
	b.WriteString("🛒 Shop\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, item := range c.GetAllItems() {
		fmt.Fprintf(&b, "%s %s (%d🪙): %s\n", item.Emoji, item.Name, item.Price, item.Description)
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "🪙 Your coins: %d", coins)
	return b.String()
}

// FormatInventoryMessage lists the owned items.
func FormatInventoryMessage(owned []Stock) string {
	if len(owned) == 0 {
		return "🎒 Inventory is empty. Visit the /shop!"
	}

	var b strings.Builder
	b.WriteString("🎒 Inventory\n")
	for _, s := range owned {
		fmt.Fprintf(&b, "%s %s x%d\n", s.Item.Emoji, s.Item.Name, s.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatWait renders a wait as "Xh Ym".
func FormatWait(hours, minutes int) string {
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
