package handler

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-warden/internal/config"
	"tg-warden/internal/gateway"
	"tg-warden/internal/service"
)

// ViolationPredicate decides whether a message's text violates chat
// rules; the second return value is the reason recorded with the
// resulting warning. Content classification itself lives outside the
// engine.
type ViolationPredicate func(text string) (bool, string)

var (
	globalConfig *config.Config
	detector     ViolationPredicate
)

// Initialize stores configuration and the optional content predicate
func Initialize(cfg *config.Config, pred ViolationPredicate) {
	globalConfig = cfg
	detector = pred
	service.Initialize(cfg)
}

// SetupMessageHandlers configures all bot message and update handlers
func SetupMessageHandlers(bh *th.BotHandler, bot *telego.Bot) {
	service.InitRepositories()
	service.WireServices(gateway.NewTelegramGateway(bot))

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		ok, err := HandleCommand(ctx, bot, message)
		if ok {
			return err
		}

		return handleIncomingMessage(ctx, bot, message)
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return handleChatMemberUpdate(ctx, bot, update)
	}, th.AnyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		return HandleCallbackQuery(ctx, bot, query)
	})
}
