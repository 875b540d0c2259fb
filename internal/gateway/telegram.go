package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"

	"tg-warden/internal/logger"
)

// mutedPermissions revokes every send capability
var mutedPermissions = telego.ChatPermissions{}

// TelegramGateway implements ChatGateway against the Telegram Bot API
type TelegramGateway struct {
	bot *telego.Bot
}

// NewTelegramGateway creates a gateway backed by the given bot
func NewTelegramGateway(bot *telego.Bot) *TelegramGateway {
	return &TelegramGateway{bot: bot}
}

// MemberStatus returns the live membership state of a user
func (g *TelegramGateway) MemberStatus(ctx context.Context, chatID, userID int64) (MemberInfo, error) {
	member, err := g.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: userID,
	})
	if err != nil {
		return MemberInfo{}, fmt.Errorf("get chat member %d in %d: %w", userID, chatID, err)
	}

	info := MemberInfo{CanSend: true}
	switch member.MemberStatus() {
	case telego.MemberStatusCreator:
		info.Role = RoleOwner
	case telego.MemberStatusAdministrator:
		info.Role = RoleAdmin
	case telego.MemberStatusMember:
		info.Role = RoleMember
	case telego.MemberStatusRestricted:
		info.Role = RoleRestricted
		if restricted, ok := member.(*telego.ChatMemberRestricted); ok {
			info.CanSend = restricted.CanSendMessages
		}
	case telego.MemberStatusLeft:
		info.Role = RoleLeft
		info.CanSend = false
	case telego.MemberStatusBanned:
		info.Role = RoleKicked
		info.CanSend = false
	default:
		info.Role = RoleMember
	}

	return info, nil
}

// Restrict removes all send permissions from a user
func (g *TelegramGateway) Restrict(ctx context.Context, chatID, userID int64, until *time.Time) error {
	params := &telego.RestrictChatMemberParams{
		ChatID:      telego.ChatID{ID: chatID},
		UserID:      userID,
		Permissions: mutedPermissions,
	}
	if until != nil {
		params.UntilDate = until.Unix()
	}

	if err := g.bot.RestrictChatMember(ctx, params); err != nil {
		return fmt.Errorf("restrict user %d in chat %d: %w", userID, chatID, err)
	}
	return nil
}

// Unrestrict restores the chat's default permissions for a user
func (g *TelegramGateway) Unrestrict(ctx context.Context, chatID, userID int64) error {
	yes := true
	permissions := telego.ChatPermissions{
		CanSendMessages:       &yes,
		CanSendAudios:         &yes,
		CanSendDocuments:      &yes,
		CanSendPhotos:         &yes,
		CanSendVideos:         &yes,
		CanSendVideoNotes:     &yes,
		CanSendVoiceNotes:     &yes,
		CanSendPolls:          &yes,
		CanSendOtherMessages:  &yes,
		CanAddWebPagePreviews: &yes,
		CanInviteUsers:        &yes,
	}

	// Prefer the chat's own default permissions when available
	chatInfo, err := g.bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{ID: chatID},
	})
	if err == nil && chatInfo.Permissions != nil {
		permissions = *chatInfo.Permissions
	}

	err = g.bot.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:      telego.ChatID{ID: chatID},
		UserID:      userID,
		Permissions: permissions,
	})
	if err != nil {
		return fmt.Errorf("unrestrict user %d in chat %d: %w", userID, chatID, err)
	}
	return nil
}

// Ban removes a user from the chat
func (g *TelegramGateway) Ban(ctx context.Context, chatID, userID int64, until *time.Time) error {
	params := &telego.BanChatMemberParams{
		ChatID:         telego.ChatID{ID: chatID},
		UserID:         userID,
		RevokeMessages: true,
	}
	if until != nil {
		params.UntilDate = until.Unix()
	}

	if err := g.bot.BanChatMember(ctx, params); err != nil {
		return fmt.Errorf("ban user %d in chat %d: %w", userID, chatID, err)
	}
	return nil
}

// Unban lifts a ban for a user
func (g *TelegramGateway) Unban(ctx context.Context, chatID, userID int64) error {
	err := g.bot.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       telego.ChatID{ID: chatID},
		UserID:       userID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unban user %d in chat %d: %w", userID, chatID, err)
	}
	return nil
}

// SendMessage sends an HTML-formatted message
func (g *TelegramGateway) SendMessage(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) (MessageRef, error) {
	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: "HTML",
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	msg, err := g.bot.SendMessage(ctx, params)
	if err != nil {
		return MessageRef{}, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return MessageRef{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// DeleteMessage removes a previously sent message
func (g *TelegramGateway) DeleteMessage(ctx context.Context, ref MessageRef) error {
	err := g.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: ref.ChatID},
		MessageID: ref.MessageID,
	})
	if err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}

// ForwardMessage forwards an existing message to another chat
func (g *TelegramGateway) ForwardMessage(ctx context.Context, toChatID int64, from MessageRef) error {
	_, err := g.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     telego.ChatID{ID: toChatID},
		FromChatID: telego.ChatID{ID: from.ChatID},
		MessageID:  from.MessageID,
	})
	if err != nil {
		logger.Debugf("forward message %d from chat %d to %d failed: %v", from.MessageID, from.ChatID, toChatID, err)
		return fmt.Errorf("forward message %d to chat %d: %w", from.MessageID, toChatID, err)
	}
	return nil
}
