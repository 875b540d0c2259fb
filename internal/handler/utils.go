package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"tg-warden/internal/service"
)

// isUserAdmin checks if a user is an administrator or owner of a chat
func isUserAdmin(ctx context.Context, bot *telego.Bot, chatID int64, userID int64) (bool, error) {
	member, err := bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: userID,
	})
	if err != nil {
		return false, err
	}

	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}

// isGroupChat reports whether a message came from a group or supergroup
func isGroupChat(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

// fullName renders a user's display name
func fullName(user telego.User) string {
	if user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	return user.FirstName
}

// targetOf builds a sanction target from a user
func targetOf(user telego.User) service.Target {
	return service.Target{ID: user.ID, Name: fullName(user)}
}

// parseCommand splits "/cmd@bot arg1 arg2" into the bare command name
// and its arguments. Returns "" when the text is not a command.
func parseCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}

	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}

	return cmd, fields[1:]
}

// parseUntil converts a duration argument into an absolute expiry.
// "permanent" (or an empty argument) yields nil; otherwise accepts Go
// duration syntax ("30m", "2h30m") plus a day suffix ("7d").
func parseUntil(arg string, now time.Time) (*time.Time, bool) {
	if arg == "" || strings.EqualFold(arg, "permanent") {
		return nil, true
	}

	var d time.Duration
	if strings.HasSuffix(arg, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(arg, "d"))
		if err != nil || days <= 0 {
			return nil, false
		}
		d = time.Duration(days) * 24 * time.Hour
	} else {
		var err error
		d, err = time.ParseDuration(arg)
		if err != nil || d <= 0 {
			return nil, false
		}
	}

	until := now.Add(d)
	return &until, true
}

// replyTo sends a plain HTML reply to a message
func replyTo(ctx context.Context, bot *telego.Bot, message telego.Message, text string) error {
	_, err := bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            text,
		ParseMode:       "HTML",
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
	return err
}

// userByID fetches chat member info so a command can address a target
// by numeric ID instead of by reply
func userByID(ctx context.Context, bot *telego.Bot, chatID, userID int64) (telego.User, error) {
	member, err := bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chatID},
		UserID: userID,
	})
	if err != nil {
		return telego.User{}, fmt.Errorf("get chat member %d: %w", userID, err)
	}
	return member.MemberUser(), nil
}
