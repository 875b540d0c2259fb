package handler

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-warden/internal/logger"
	"tg-warden/internal/service"
)

// handleChatMemberUpdate watches membership transitions and triggers
// the captcha flow for fresh joins
func handleChatMemberUpdate(ctx *th.Context, bot *telego.Bot, update telego.Update) error {
	cm := update.ChatMember
	if cm == nil {
		return nil
	}

	if !isGroupChat(cm.Chat) {
		return nil
	}

	if !isJoinTransition(cm.OldChatMember, cm.NewChatMember) {
		return nil
	}

	user := cm.NewChatMember.MemberUser()
	if user.IsBot {
		return nil
	}

	logger.Infof("user %d joined chat %d, starting captcha", user.ID, cm.Chat.ID)
	return service.Captcha.HandleJoin(ctx.Context(), cm.Chat.ID, targetOf(user))
}

// isJoinTransition reports whether a member moved from outside the
// chat to inside it
func isJoinTransition(old, new telego.ChatMember) bool {
	switch old.MemberStatus() {
	case telego.MemberStatusLeft, telego.MemberStatusBanned:
	default:
		return false
	}

	switch new.MemberStatus() {
	case telego.MemberStatusMember:
		return true
	case telego.MemberStatusRestricted:
		if restricted, ok := new.(*telego.ChatMemberRestricted); ok {
			return restricted.IsMember
		}
	}
	return false
}
