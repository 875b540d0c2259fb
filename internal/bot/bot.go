package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-warden/internal/config"
	"tg-warden/internal/logger"
)

// BotService represents the Telegram bot service
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
}

// Start starts the bot handler
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler
func (b *BotService) Stop() {
	b.Handler.Stop()
}

// Initialize initializes the bot and webhook
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, *WebhookServer, error) {
	// Validate configuration
	if cfg.Bot.Token == "" {
		return nil, nil, fmt.Errorf("bot token is required")
	}

	// Initialize bot
	bot, err := telego.NewBot(cfg.Bot.Token, telego.WithDefaultDebugLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	// Get bot info
	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	logger.Infof("Authorized on account %s", botUser.Username)

	setCommands(ctx, bot)

	// Delete any existing webhook
	err = bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	// Set fixed secret token based on bot token
	secretToken := webhookSecretToken(cfg.Bot.Token)

	// Set up webhook handler
	bh, server, err := SetupWebhook(ctx, bot, cfg.Bot.Webhook.Endpoint, cfg.Bot.Webhook.ListenPort, secretToken, cfg.Bot.Webhook.CertFile, cfg.Bot.Webhook.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup webhook: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
	}, server, nil
}

// webhookSecretToken derives a stable webhook secret from the bot
// token's tail, tolerating tokens shorter than the suffix length
func webhookSecretToken(token string) string {
	suffix := token
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "secure_webhook_token_" + suffix
}

// setCommands registers the bot command menu
func setCommands(ctx context.Context, bot *telego.Bot) {
	commands := []telego.BotCommand{
		{Command: "help", Description: "How to use the bot"},
		{Command: "warn", Description: "Issue a warning (reply required)"},
		{Command: "unwarn", Description: "Remove one warning (reply required)"},
		{Command: "mute", Description: "Restrict a user (reply or ID)"},
		{Command: "unmute", Description: "Lift a restriction (reply or ID)"},
		{Command: "ban", Description: "Ban a user (reply or ID)"},
		{Command: "unban", Description: "Unban a user (reply or ID)"},
		{Command: "mute_list", Description: "View mute history"},
		{Command: "ban_list", Description: "View ban history"},
		{Command: "warn_list", Description: "View warning history"},
		{Command: "set_log_chat", Description: "Set the audit log channel"},
		{Command: "unset_log_chat", Description: "Remove the audit log channel"},
	}

	err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		logger.Warningf("Failed to set bot commands: %v", err)
	}
}
