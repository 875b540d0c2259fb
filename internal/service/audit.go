package service

import (
	"context"
	"fmt"

	"tg-warden/internal/gateway"
	"tg-warden/internal/logger"
	"tg-warden/internal/storage"
)

// AuditBroadcaster mirrors sanction events to a group's configured log
// channel. Strictly best-effort: every failure is logged and swallowed,
// the sanction that triggered the broadcast is never affected.
type AuditBroadcaster struct {
	gw      gateway.ChatGateway
	configs *storage.ChatConfigRepository
}

// NewAuditBroadcaster creates an AuditBroadcaster
func NewAuditBroadcaster(gw gateway.ChatGateway, configs *storage.ChatConfigRepository) *AuditBroadcaster {
	return &AuditBroadcaster{gw: gw, configs: configs}
}

// Broadcast sends one audit entry for a sanction in chatID. origin, if
// set, is the offending message and is forwarded ahead of the summary.
// No configured log channel is not an error, just a no-op.
func (b *AuditBroadcaster) Broadcast(ctx context.Context, chatID int64, target Target, action, duration, reason string, origin *gateway.MessageRef) {
	cfg, err := b.configs.Get(chatID)
	if err != nil {
		logger.Warningf("audit: failed to load chat config for %d: %v", chatID, err)
		return
	}
	if cfg == nil {
		return
	}

	if origin != nil {
		if err := b.gw.ForwardMessage(ctx, cfg.LogChatID, *origin); err != nil {
			logger.Debugf("audit: could not forward offending message: %v", err)
		}
	}

	text := fmt.Sprintf("<b>%s</b>\nUser: %s (<code>%d</code>)\nChat: <code>%d</code>", action, target.LinkedName(), target.ID, chatID)
	if duration != "" {
		text += fmt.Sprintf("\nDuration: %s", duration)
	}
	if reason != "" {
		text += fmt.Sprintf("\nReason: %s", reason)
	}

	if _, err := b.gw.SendMessage(ctx, cfg.LogChatID, text, nil); err != nil {
		logger.Warningf("audit: failed to send log to chat %d: %v", cfg.LogChatID, err)
		return
	}

	logger.Debugf("audit: log sent to chat %d for user %d", cfg.LogChatID, target.ID)
}
