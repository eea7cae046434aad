// Package bot is the Telegram transport: it owns the telebot instance, the
// router chain, and the mapping from updates to engine operations.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/aizen-labs/premium-bot/internal/apperr"
	"github.com/aizen-labs/premium-bot/internal/bot/handlers"
	"github.com/aizen-labs/premium-bot/internal/bot/keyboard"
	"github.com/aizen-labs/premium-bot/internal/engine"
	"github.com/aizen-labs/premium-bot/internal/idempotency"
	"github.com/aizen-labs/premium-bot/internal/middleware"
	"github.com/aizen-labs/premium-bot/internal/session"
	"github.com/aizen-labs/premium-bot/pkg/config"
)

// NewTelebot builds the raw telebot instance for the configured mode. Kept
// separate from Bot wiring so the notifier can be constructed around the
// same instance before the engine exists.
func NewTelebot(cfg config.BotConfig, serverPort string) (*telebot.Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Token,
	}

	if cfg.Mode == "webhook" {
		listen := cfg.Listen
		if listen == "" {
			listen = serverPort
		}
		settings.Poller = &telebot.Webhook{
			Listen:   listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return tb, nil
}

// Bot wraps telebot with the routing and middleware chain.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	router     *Router
	dispatcher *Dispatcher
	keyboard   *keyboard.Builder
	errHandler *apperr.Handler
}

// New wires the router, middlewares, and handlers around an existing
// telebot instance.
func New(
	tb *telebot.Bot,
	cfg config.Config,
	eng *engine.Engine,
	sessions session.Machine,
	deduper idempotency.Deduper,
	rateLimitMw *middleware.RateLimitMiddleware,
	log *slog.Logger,
) *Bot {
	if log == nil {
		log = slog.Default()
	}

	kb := keyboard.NewBuilder(log)
	dispatcher := NewDispatcher(sessions, log)
	router := NewRouter(dispatcher, log)
	errHandler := apperr.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:    tb,
		log:        log,
		router:     router,
		dispatcher: dispatcher,
		keyboard:   kb,
		errHandler: errHandler,
	}

	b.setupRouter(eng, deduper)

	if rateLimitMw != nil {
		b.telebot.Use(rateLimitMw.Handle)
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)

	return b
}

// Start runs the telegram bot event loop. Blocks until Stop.
func (b *Bot) Start() {
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot")
	b.telebot.Stop()
}

// Telebot exposes the underlying instance for health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(eng *engine.Engine, deduper idempotency.Deduper) {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Dedupe(deduper, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)

	// User commands.
	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(eng, b.keyboard, b.log))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(eng, b.keyboard, b.log))
	b.router.RegisterCommand(CommandStatus, handlers.NewStatusHandler(eng, b.keyboard, b.log))
	b.router.RegisterCommand(CommandKey, handlers.NewKeyHandler(eng, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(b.log))

	// Admin commands. Authorization lives in the engine, not here.
	b.router.RegisterCommand(CommandGenKey, handlers.NewGenKeyHandler(eng, b.log))
	b.router.RegisterCommand(CommandApprove, handlers.NewApproveHandler(eng, b.log))
	b.router.RegisterCommand(CommandReject, handlers.NewRejectHandler(eng, b.log))
	b.router.RegisterCommand(CommandBan, handlers.NewBanHandler(eng, true, b.log))
	b.router.RegisterCommand(CommandUnban, handlers.NewBanHandler(eng, false, b.log))
	b.router.RegisterCommand(CommandBroadcast, handlers.NewBroadcastHandler(eng, b.log))
	b.router.RegisterCommand(CommandPending, handlers.NewPendingHandler(eng, b.log))

	// Menu callbacks.
	b.router.RegisterCallback(CallbackRedeem, handlers.NewRedeemHandler(eng, b.keyboard, b.log))
	b.router.RegisterCallback(CallbackBuyPremium, handlers.NewBuyPremiumHandler(eng, b.keyboard, b.log))
	b.router.RegisterCallback(CallbackServices, handlers.NewServicesHandler(b.keyboard, b.log))
	b.router.RegisterCallback(CallbackService, handlers.NewServiceDetailHandler(b.keyboard, b.log))
	b.router.RegisterCallback(CallbackStatus, handlers.CallbackHandler(handlers.NewStatusHandler(eng, b.keyboard, b.log)))
	b.router.RegisterCallback(CallbackDevInfo, handlers.NewDevInfoHandler(b.keyboard, b.log))
	b.router.RegisterCallback(CallbackBack, handlers.NewBackHandler(b.keyboard, b.log))
	b.router.RegisterCallback(CallbackCancel, handlers.CallbackHandler(handlers.NewCancelHandler(eng, b.keyboard, b.log)))

	// Free text while awaiting details files the redeem request.
	b.dispatcher.RegisterStateHandler(session.StateAwaitingDetails, handlers.NewDetailsHandler(eng, b.keyboard, b.log))

	// Idle free text just restates the menu.
	b.router.SetDefault(func(c telebot.Context) error {
		if c == nil {
			return nil
		}
		return c.Send("Use the menu below 👇", b.keyboard.MainMenu())
	})
}
