// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"turtle-bot/internal/config"
	"turtle-bot/internal/handler"
	"turtle-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	limiter *RateLimiter

	petHandler *handler.PetHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config     *config.Config
	PetService *service.PetService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: deps.Config.Bot.PollTimeout},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:        teleBot,
		cfg:        deps.Config,
		limiter:    NewRateLimiter(deps.Config.Bot.RateLimit, deps.Config.Bot.RateBurst),
		petHandler: handler.NewPetHandler(deps.PetService, deps.Config.Leaderboard.TopSize),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(b.limiter.Middleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	h := b.petHandler

	b.bot.Handle("/start", h.HandleStart)
	b.bot.Handle("/help", h.HandleHelp)
	b.bot.Handle("/status", h.HandleStatus)
	b.bot.Handle("/daily", h.HandleDaily)
	b.bot.Handle("/feed", h.HandleFeedMenu)
	b.bot.Handle("/play", h.HandlePlay)
	b.bot.Handle("/shop", h.HandleShop)
	b.bot.Handle("/inventory", h.HandleInventory)
	b.bot.Handle("/heal", h.HandleHeal)
	b.bot.Handle("/rename", h.HandleRename)
	b.bot.Handle("/leaderboard", h.HandleLeaderboard)

	b.bot.Handle(tele.OnCallback, h.HandleCallback)
	b.bot.Handle(tele.OnText, h.HandleText)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start(ctx context.Context) {
	log.Info().Msg("Starting bot...")

	b.limiter.StartCleanup(ctx, 10*time.Minute, time.Hour)

	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
