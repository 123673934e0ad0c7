// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"turtle-bot/internal/model"
	"turtle-bot/internal/service"
	"turtle-bot/internal/shop"
)

var medals = []string{"🥇", "🥈", "🥉"}

// PetHandler handles pet care commands and menu callbacks.
type PetHandler struct {
	pets    *service.PetService
	topSize int

	// awaitingName holds users whose next text message is a new pet name.
	awaitingName sync.Map
}

// NewPetHandler creates a new PetHandler.
func NewPetHandler(pets *service.PetService, topSize int) *PetHandler {
	return &PetHandler{
		pets:    pets,
		topSize: topSize,
	}
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// ensure returns the sender's pet, creating it on first contact.
// A nil pet means the sender is unknown or the failure was already reported.
func (h *PetHandler) ensure(c tele.Context) (*model.Pet, error) {
	sender := c.Sender()
	if sender == nil {
		return nil, nil
	}
	p, created, err := h.pets.EnsurePet(context.Background(), sender.ID, displayName(sender))
	if err != nil && !errors.Is(err, service.ErrPersistence) {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load pet")
		return nil, h.show(c, "❌ Something went wrong. Please try again later.", shop.BuildMainMenu())
	}
	if created {
		log.Info().Int64("user_id", sender.ID).Msg("New player joined")
	}
	return p, nil
}

// show edits the callback message in place, or sends a new message for commands.
func (h *PetHandler) show(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil {
		return c.Edit(text, markup)
	}
	return c.Send(text, markup)
}

// reply shows an action outcome. Callbacks get a back button leading to back,
// commands get the main menu.
func (h *PetHandler) reply(c tele.Context, text, back string) error {
	if c.Callback() != nil {
		return c.Edit(text, shop.BuildBackPanel(back))
	}
	return c.Send(text, shop.BuildMainMenu())
}

// failure renders an expected engine error for the user.
func (h *PetHandler) failure(c tele.Context, err error, back string) error {
	return h.reply(c, errorText(err), back)
}

// errorText maps engine errors to user messages.
func errorText(err error) string {
	var cd *service.CooldownError
	switch {
	case errors.As(err, &cd):
		wait := shop.FormatWait(cd.Hours(), cd.Minutes())
		if cd.Action == service.ActionDaily {
			return "⏳ Next reward in " + wait + "."
		}
		return "😴 The turtle is tired. Play again in " + wait + "."
	case errors.Is(err, service.ErrInsufficientFunds):
		return "🪙 Not enough coins!"
	case errors.Is(err, service.ErrItemNotOwned):
		return "🎒 You don't have this item!"
	case errors.Is(err, service.ErrUnknownItem):
		return "❓ No such item in the shop."
	case errors.Is(err, service.ErrInvalidName):
		return "✏️ The name cannot be empty!"
	case errors.Is(err, service.ErrBusy):
		return "⏳ Still busy with your previous action. Try again in a moment."
	case errors.Is(err, service.ErrUserNotFound):
		return "🐢 You don't have a turtle yet. Send /start."
	default:
		return "❌ Something went wrong. Please try again later."
	}
}

// checkResult separates a persistence failure, which still carries a result,
// from a rejected action. It returns the suffix to append to the success text.
func checkResult(c tele.Context, res *service.ActionResult, err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if errors.Is(err, service.ErrPersistence) && res != nil {
		log.Warn().Err(err).Int64("user_id", c.Sender().ID).Str("action", string(res.Action)).Msg("Action applied but not saved")
		return "\n\n⚠️ Progress could not be saved right now.", nil
	}
	return "", err
}

func levelUpText(res *service.ActionResult) string {
	if res.LevelUp == nil {
		return ""
	}
	return fmt.Sprintf("\n\n🎉 Level up! Your turtle reached level %d (+%d🪙)", res.LevelUp.Level, res.LevelUp.CoinsAwarded)
}

// FormatStatus renders the pet's attributes.
func FormatStatus(p *model.Pet) string {
	return fmt.Sprintf(
		"🐢 Name: %s\n"+
			"📊 Level: %d\n"+
			"⭐ Experience: %d/%d\n"+
			"🍽️ Hunger: %d/%d\n"+
			"😊 Happiness: %d/%d\n"+
			"❤️ Health: %d/%d\n"+
			"🪙 Coins: %d",
		p.Name,
		p.Level,
		p.Experience, p.ExperienceToNextLevel(),
		p.Hunger, model.MaxStat,
		p.Happiness, model.MaxStat,
		p.Health, model.MaxStat,
		p.Coins,
	)
}

// FormatLeaderboard renders the top entries with their ranks.
func FormatLeaderboard(entries []model.LeaderboardEntry, size int) string {
	if len(entries) == 0 {
		return "🏆 Leaderboard\n\nNo turtle has leveled up yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Top %d players:\n\n", size)
	for i, e := range entries {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s %s - level %d\n", rank, e.DisplayName, e.Level)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HandleStart handles the /start command.
func (h *PetHandler) HandleStart(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	greeting := fmt.Sprintf(
		"🐢 Hi, %s! Welcome to TurtleBot!\n"+
			"You have your own virtual turtle to look after.\n\n"+
			"Use the buttons below or /help for the list of commands.",
		c.Sender().FirstName,
	)
	if err := c.Send(greeting); err != nil {
		return err
	}
	return c.Send(FormatStatus(p), shop.BuildMainMenu())
}

// HandleHelp handles the /help command.
func (h *PetHandler) HandleHelp(c tele.Context) error {
	return c.Send(
		"🐢 TurtleBot commands:\n"+
			"/start - start the game\n"+
			"/status - turtle status\n"+
			"/feed - feed the turtle\n"+
			"/play - play with the turtle\n"+
			"/shop - shop\n"+
			"/inventory - your items\n"+
			"/heal - heal the turtle\n"+
			"/rename - rename the turtle\n"+
			"/leaderboard - top players\n"+
			"/daily - daily reward\n"+
			"/help - this list",
		shop.BuildMainMenu(),
	)
}

// HandleStatus handles /status and the back button.
func (h *PetHandler) HandleStatus(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}
	return h.show(c, FormatStatus(p), shop.BuildMainMenu())
}

// HandleInventory handles the /inventory command.
func (h *PetHandler) HandleInventory(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}
	items, err := h.pets.Inventory(context.Background(), p.UserID)
	if err != nil {
		return h.failure(c, err, shop.CallbackBack)
	}
	return h.show(c, shop.FormatInventoryMessage(items), shop.BuildInventoryPanel(h.pets.Catalog(), items))
}

// HandleFeedMenu lists the owned food.
func (h *PetHandler) HandleFeedMenu(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}
	items, err := h.pets.Inventory(context.Background(), p.UserID)
	if err != nil {
		return h.failure(c, err, shop.CallbackBack)
	}

	text := "🍽 Choose food for the turtle:"
	hasFood := false
	for _, s := range items {
		if s.Item.IsEdible() {
			hasFood = true
			break
		}
	}
	if !hasFood {
		text = "🍽 You have no food. Buy some in the shop!"
	}
	return h.show(c, text, shop.BuildFeedPanel(items))
}

// HandleFeed feeds one copy of an owned food item.
func (h *PetHandler) HandleFeed(c tele.Context, item shop.ItemType) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	res, err := h.pets.Feed(context.Background(), p.UserID, item)
	note, err := checkResult(c, res, err)
	if err != nil {
		return h.failure(c, err, shop.CallbackFeed)
	}

	cfg, _ := h.pets.Catalog().GetItem(res.Item)
	text := fmt.Sprintf(
		"%s You fed the turtle %s!\n+%d hunger, +%d happiness, +%d experience",
		cfg.Emoji, strings.ToLower(cfg.Name), res.HungerGained, res.HappinessGained, res.ExperienceGained,
	)
	if res.HealthGained > 0 {
		text += fmt.Sprintf(", +%d health", res.HealthGained)
	}
	return h.reply(c, text+levelUpText(res)+note, shop.CallbackFeed)
}

// HandleUse uses any owned item, food or care.
func (h *PetHandler) HandleUse(c tele.Context, item shop.ItemType) error {
	catalog := h.pets.Catalog()
	if catalog.IsEdible(item) {
		return h.HandleFeed(c, item)
	}

	p, err := h.ensure(c)
	if p == nil {
		return err
	}
	res, err := h.pets.UseItem(context.Background(), p.UserID, item)
	note, err := checkResult(c, res, err)
	if err != nil {
		return h.failure(c, err, shop.CallbackInventory)
	}
	cfg, _ := catalog.GetItem(res.Item)

	text := fmt.Sprintf(
		"%s You used %s!\n+%d happiness, +%d health, +%d experience",
		cfg.Emoji, strings.ToLower(cfg.Name), res.HappinessGained, res.HealthGained, res.ExperienceGained,
	)
	return h.reply(c, text+levelUpText(res)+note, shop.CallbackInventory)
}

// HandlePlay handles /play and the play button.
func (h *PetHandler) HandlePlay(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	res, err := h.pets.Play(context.Background(), p.UserID)
	note, err := checkResult(c, res, err)
	if err != nil {
		return h.failure(c, err, shop.CallbackBack)
	}

	text := fmt.Sprintf(
		"🎾 You played with the turtle!\n+%d happiness\n+%d experience",
		res.HappinessGained, res.ExperienceGained,
	)
	return h.reply(c, text+levelUpText(res)+note, shop.CallbackBack)
}

// HandleShop shows the shop.
func (h *PetHandler) HandleShop(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}
	catalog := h.pets.Catalog()
	return h.show(c, shop.FormatShopMessage(catalog, p.Coins), shop.BuildShopPanel(catalog))
}

// HandleBuy buys one copy of an item.
func (h *PetHandler) HandleBuy(c tele.Context, item shop.ItemType) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	res, err := h.pets.Buy(context.Background(), p.UserID, item)
	note, err := checkResult(c, res, err)
	if err != nil {
		return h.failure(c, err, shop.CallbackShop)
	}

	cfg, _ := h.pets.Catalog().GetItem(res.Item)
	text := fmt.Sprintf(
		"%s You bought %s for %d🪙!\n🪙 Coins left: %d",
		cfg.Emoji, strings.ToLower(cfg.Name), res.CoinsSpent, res.Pet.Coins,
	)
	return h.reply(c, text+note, shop.CallbackShop)
}

// HandleHeal handles /heal and the heal button.
func (h *PetHandler) HandleHeal(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	res, err := h.pets.Heal(context.Background(), p.UserID)
	note, err := checkResult(c, res, err)
	if errors.Is(err, service.ErrItemNotOwned) {
		return h.show(c, "💊 No medicine! Buy some in the shop.", shop.BuildNoMedicinePanel())
	}
	if err != nil {
		return h.failure(c, err, shop.CallbackBack)
	}

	text := fmt.Sprintf("💉 The turtle is healed! +%d health", res.HealthGained)
	return h.reply(c, text+note, shop.CallbackBack)
}

// HandleDaily handles /daily and the daily reward button.
func (h *PetHandler) HandleDaily(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	res, err := h.pets.ClaimDaily(context.Background(), p.UserID)
	note, err := checkResult(c, res, err)
	if err != nil {
		return h.failure(c, err, shop.CallbackBack)
	}

	text := fmt.Sprintf("🎁 You received %d coins!", res.CoinsGained)
	return h.reply(c, text+note, shop.CallbackBack)
}

// HandleLeaderboard shows the top players.
func (h *PetHandler) HandleLeaderboard(c tele.Context) error {
	entries := h.pets.TopLeaderboard(h.topSize)
	text := FormatLeaderboard(entries, h.topSize)

	if sender := c.Sender(); sender != nil {
		if entry, rank, ok := h.pets.Rank(sender.ID); ok && rank > h.topSize {
			text += fmt.Sprintf("\n\nYour place: %d (level %d)", rank, entry.Level)
		}
	}
	return h.reply(c, text, shop.CallbackBack)
}

// HandleRename starts the rename dialogue; the next text message is the name.
// "/rename <name>" renames directly.
func (h *PetHandler) HandleRename(c tele.Context) error {
	p, err := h.ensure(c)
	if p == nil {
		return err
	}

	if c.Callback() == nil {
		if name := strings.TrimSpace(c.Message().Payload); name != "" {
			return h.rename(c, p.UserID, name)
		}
	}

	h.awaitingName.Store(p.UserID, struct{}{})
	return h.reply(c, "✏️ Send a new name for your turtle:", shop.CallbackBack)
}

// IsAwaitingName reports whether the user's next text is a new pet name.
func (h *PetHandler) IsAwaitingName(userID int64) bool {
	_, ok := h.awaitingName.Load(userID)
	return ok
}

func (h *PetHandler) rename(c tele.Context, userID int64, text string) error {
	res, err := h.pets.Rename(context.Background(), userID, text)
	note, err := checkResult(c, res, err)
	if errors.Is(err, service.ErrInvalidName) {
		return c.Send(errorText(err))
	}
	if err != nil {
		h.awaitingName.Delete(userID)
		return c.Send(errorText(err), shop.BuildMainMenu())
	}

	h.awaitingName.Delete(userID)
	return c.Send(fmt.Sprintf("🐢 Your turtle is now called %s!%s", res.Pet.Name, note), shop.BuildMainMenu())
}

// HandleText handles plain text: a pending rename or a hint.
func (h *PetHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if h.IsAwaitingName(sender.ID) && !strings.HasPrefix(c.Text(), "/") {
		return h.rename(c, sender.ID, c.Text())
	}
	return c.Send("Use the menu buttons or /help", shop.BuildMainMenu())
}

// HandleCallback routes inline keyboard presses.
func (h *PetHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	_ = c.Respond()

	action, item := shop.ParseCallback(cb.Data)
	log.Debug().Str("action", action).Str("item", string(item)).Msg("Callback received")

	switch action {
	case shop.CallbackFeed:
		return h.HandleFeedMenu(c)
	case shop.CallbackPlay:
		return h.HandlePlay(c)
	case shop.CallbackShop:
		return h.HandleShop(c)
	case shop.CallbackHeal:
		return h.HandleHeal(c)
	case shop.CallbackLeaderboard:
		return h.HandleLeaderboard(c)
	case shop.CallbackRename:
		return h.HandleRename(c)
	case shop.CallbackDaily:
		return h.HandleDaily(c)
	case shop.CallbackBuy:
		return h.HandleBuy(c, item)
	case shop.CallbackInventory:
		return h.HandleInventory(c)
	case shop.CallbackUse:
		return h.HandleUse(c, item)
	case shop.CallbackBack:
		if sender := c.Sender(); sender != nil {
			h.awaitingName.Delete(sender.ID)
		}
		return h.HandleStatus(c)
	default:
		log.Warn().Str("data", cb.Data).Msg("Unknown callback")
		return nil
	}
}
