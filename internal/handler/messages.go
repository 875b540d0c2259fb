package handler

import (
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-warden/internal/gateway"
	"tg-warden/internal/logger"
	"tg-warden/internal/service"
)

// handleIncomingMessage counts the message in the author's ledger and
// runs the content predicate, warning the author when it trips
func handleIncomingMessage(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if message.From == nil || !isGroupChat(message.Chat) {
		return nil
	}
	if message.From.IsBot {
		return nil
	}

	if err := service.Restrictions.NoteMessage(message.Chat.ID, message.From.ID); err != nil {
		logger.Warningf("failed to count message for user %d in chat %d: %v", message.From.ID, message.Chat.ID, err)
	}

	if detector == nil || message.Text == "" {
		return nil
	}

	violated, reason := detector(message.Text)
	if !violated {
		return nil
	}

	target := targetOf(*message.From)
	origin := &gateway.MessageRef{ChatID: message.Chat.ID, MessageID: message.MessageID}

	result, err := service.Restrictions.Warn(ctx.Context(), message.Chat.ID, target, reason, origin)
	if err != nil {
		if errors.Is(err, service.ErrPrivilegedTarget) {
			// Admins are not sanctioned for tripping the filter
			return nil
		}
		logger.Errorf("auto-warn failed for user %d in chat %d: %v", message.From.ID, message.Chat.ID, err)
		return nil
	}

	return replyTo(ctx.Context(), bot, message, formatWarnNotice(target, result))
}

// formatWarnNotice renders the user-facing outcome of a warning
func formatWarnNotice(target service.Target, result *service.WarnResult) string {
	if result.AutoMuted {
		return fmt.Sprintf("%s reached %d/%d warnings and has been muted %s (mute #%d).",
			target.LinkedName(), result.MaxWarns, result.MaxWarns, result.DurationLabel, result.MuteCount)
	}
	return fmt.Sprintf("%s has been warned (%d/%d).",
		target.LinkedName(), result.CurrentWarns, result.MaxWarns)
}
