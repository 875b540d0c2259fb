package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-warden/internal/gateway"
	"tg-warden/internal/logger"
	"tg-warden/internal/models"
	"tg-warden/internal/service"
)

const (
	noticeReplyRequired   = "Reply to the offender's message or pass a user ID."
	noticeInvalidFormat   = "Invalid command format."
	noticePrivileged      = "Administrators and the chat owner cannot be sanctioned."
	noticeSystemError     = "Something went wrong, the action was not applied."
	noticeAdminOnly       = "This command is for administrators only."
	noticeAlreadyMuted    = "This user is already muted. Add \"set\" to update the duration."
	noticeNotMuted        = "This user is not muted."
	noticeAlreadyBanned   = "This user is already banned. Add \"set\" to update the duration."
	noticeNoWarnings      = "This user has no active warnings."
	noticeNoMuteRecords   = "No mute history for this chat."
	noticeNoBanRecords    = "No ban history for this chat."
	noticeNoWarnRecords   = "No warning history for this chat."
	noticeLogChatSet      = "Audit log channel configured."
	noticeLogChatUnset    = "Audit log channel removed."
	noticeLogChatRequired = "Pass the log channel's chat ID, e.g. /set_log_chat -1001234567890."
)

// HandleCommand dispatches bot commands. The first return value tells
// the caller whether the message was a command at all.
func HandleCommand(ctx *th.Context, bot *telego.Bot, message telego.Message) (bool, error) {
	cmd, args := parseCommand(message.Text)
	if cmd == "" {
		return false, nil
	}

	if cmd == "help" {
		return true, sendHelpMessage(ctx, bot, message)
	}

	switch cmd {
	case "warn", "unwarn", "mute", "unmute", "ban", "unban",
		"mute_list", "ban_list", "warn_list",
		"set_log_chat", "unset_log_chat":
	default:
		return false, nil
	}

	if !isGroupChat(message.Chat) {
		return true, replyTo(ctx.Context(), bot, message, "Moderation commands work in groups only.")
	}

	if message.From == nil {
		return true, nil
	}
	isAdmin, err := isUserAdmin(ctx.Context(), bot, message.Chat.ID, message.From.ID)
	if err != nil {
		logger.Warningf("admin check failed for user %d in chat %d: %v", message.From.ID, message.Chat.ID, err)
		return true, replyTo(ctx.Context(), bot, message, noticeSystemError)
	}
	if !isAdmin {
		return true, replyTo(ctx.Context(), bot, message, noticeAdminOnly)
	}

	switch cmd {
	case "warn", "unwarn":
		return true, handleWarnCommand(ctx, bot, message, cmd)
	case "mute", "unmute", "ban", "unban":
		return true, handleRestrictionCommand(ctx, bot, message, cmd, args)
	case "mute_list", "ban_list", "warn_list":
		return true, handleListCommand(ctx, bot, message, cmd, args)
	case "set_log_chat":
		return true, handleSetLogChat(ctx, bot, message, args)
	case "unset_log_chat":
		return true, handleUnsetLogChat(ctx, bot, message)
	}

	return false, nil
}

// handleWarnCommand processes /warn and /unwarn, both reply-targeted
func handleWarnCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, cmd string) error {
	if message.ReplyToMessage == nil || message.ReplyToMessage.From == nil {
		return replyTo(ctx.Context(), bot, message, noticeReplyRequired)
	}

	target := targetOf(*message.ReplyToMessage.From)
	origin := &gateway.MessageRef{ChatID: message.Chat.ID, MessageID: message.ReplyToMessage.MessageID}

	if cmd == "warn" {
		result, err := service.Restrictions.Warn(ctx.Context(), message.Chat.ID, target, "", origin)
		if err != nil {
			return replyPolicyOrSystemError(ctx, bot, message, "warn", target.ID, err)
		}
		return replyTo(ctx.Context(), bot, message, formatWarnNotice(target, result))
	}

	current, err := service.Restrictions.Unwarn(ctx.Context(), message.Chat.ID, target)
	if err != nil {
		return replyPolicyOrSystemError(ctx, bot, message, "unwarn", target.ID, err)
	}
	return replyTo(ctx.Context(), bot, message, fmt.Sprintf("Removed one warning from %s (now %d).", target.LinkedName(), current))
}

// handleRestrictionCommand processes /mute, /unmute, /ban and /unban.
// Target is the replied-to user or the first numeric argument.
// Remaining arguments: optional duration ("30m", "2h", "7d",
// "permanent"), the word "set" to extend an active sanction, the rest
// is the reason.
func handleRestrictionCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, cmd string, args []string) error {
	var targetUser telego.User

	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		targetUser = *message.ReplyToMessage.From
	} else {
		if len(args) == 0 {
			return replyTo(ctx.Context(), bot, message, noticeReplyRequired)
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return replyTo(ctx.Context(), bot, message, noticeInvalidFormat)
		}
		args = args[1:]

		targetUser, err = userByID(ctx.Context(), bot, message.Chat.ID, userID)
		if err != nil {
			logger.Warningf("could not resolve target %d in chat %d: %v", userID, message.Chat.ID, err)
			return replyTo(ctx.Context(), bot, message, noticeSystemError)
		}
	}

	target := targetOf(targetUser)

	extend := false
	kept := args[:0]
	for _, a := range args {
		if strings.EqualFold(a, "set") {
			extend = true
			continue
		}
		kept = append(kept, a)
	}
	args = kept

	switch cmd {
	case "unmute":
		if err := service.Restrictions.Unmute(ctx.Context(), message.Chat.ID, target); err != nil {
			return replyPolicyOrSystemError(ctx, bot, message, cmd, target.ID, err)
		}
		return replyTo(ctx.Context(), bot, message, fmt.Sprintf("%s can speak again.", target.LinkedName()))

	case "unban":
		result, err := service.Restrictions.Unban(ctx.Context(), message.Chat.ID, target)
		if err != nil {
			return replyPolicyOrSystemError(ctx, bot, message, cmd, target.ID, err)
		}
		if result.WasBanned {
			return replyTo(ctx.Context(), bot, message, fmt.Sprintf("%s has been unbanned.", target.LinkedName()))
		}
		return replyTo(ctx.Context(), bot, message, fmt.Sprintf("%s was not banned; nothing to lift.", target.LinkedName()))
	}

	durationArg := ""
	if len(args) > 0 {
		durationArg = args[0]
	}
	until, ok := parseUntil(durationArg, time.Unix(message.Date, 0))
	if !ok {
		return replyTo(ctx.Context(), bot, message, noticeInvalidFormat)
	}
	reason := ""
	if len(args) > 1 {
		reason = strings.Join(args[1:], " ")
	}

	var origin *gateway.MessageRef
	if message.ReplyToMessage != nil {
		origin = &gateway.MessageRef{ChatID: message.Chat.ID, MessageID: message.ReplyToMessage.MessageID}
	}

	switch cmd {
	case "mute":
		result, err := service.Restrictions.Mute(ctx.Context(), message.Chat.ID, target, until, reason, extend, origin)
		if err != nil {
			return replyPolicyOrSystemError(ctx, bot, message, cmd, target.ID, err)
		}
		verb := "muted"
		if result.Extended {
			verb = "mute updated,"
		}
		return replyTo(ctx.Context(), bot, message, fmt.Sprintf("%s %s %s (mute #%d).", target.LinkedName(), verb, result.DurationLabel, result.MuteCount))

	case "ban":
		result, err := service.Restrictions.Ban(ctx.Context(), message.Chat.ID, target, until, reason, extend, origin)
		if err != nil {
			return replyPolicyOrSystemError(ctx, bot, message, cmd, target.ID, err)
		}
		verb := "banned"
		if result.Extended {
			verb = "ban updated,"
		}
		return replyTo(ctx.Context(), bot, message, fmt.Sprintf("%s %s %s (ban #%d).", target.LinkedName(), verb, result.DurationLabel, result.BanCount))
	}

	return nil
}

// handleListCommand processes /mute_list, /ban_list and /warn_list,
// with an optional "current" argument restricting output to active
// restrictions
func handleListCommand(ctx *th.Context, bot *telego.Bot, message telego.Message, cmd string, args []string) error {
	kind := listKind(cmd)

	activeOnly := false
	for _, a := range args {
		if strings.EqualFold(a, "current") {
			activeOnly = true
		}
	}
	// Warnings have no active window to filter by
	if kind == models.SanctionWarn {
		activeOnly = false
	}

	page, err := service.History.Page(message.Chat.ID, kind, 1, activeOnly)
	if err != nil {
		if errors.Is(err, service.ErrNoRecords) {
			return replyTo(ctx.Context(), bot, message, noRecordsNotice(kind))
		}
		logger.Errorf("history query failed for chat %d: %v", message.Chat.ID, err)
		return replyTo(ctx.Context(), bot, message, noticeSystemError)
	}

	_, err = bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: message.Chat.ID},
		Text:        formatHistoryPage(kind, page, activeOnly),
		ParseMode:   "HTML",
		ReplyMarkup: paginationKeyboard(kind, page, activeOnly),
	})
	return err
}

// handleSetLogChat wires a group to its audit log channel
func handleSetLogChat(ctx *th.Context, bot *telego.Bot, message telego.Message, args []string) error {
	if len(args) == 0 {
		return replyTo(ctx.Context(), bot, message, noticeLogChatRequired)
	}
	logChatID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return replyTo(ctx.Context(), bot, message, noticeLogChatRequired)
	}

	if err := service.ChatConfigs().Set(message.Chat.ID, logChatID); err != nil {
		logger.Errorf("failed to set log chat for %d: %v", message.Chat.ID, err)
		return replyTo(ctx.Context(), bot, message, noticeSystemError)
	}
	return replyTo(ctx.Context(), bot, message, noticeLogChatSet)
}

// handleUnsetLogChat removes a group's audit log channel
func handleUnsetLogChat(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	if err := service.ChatConfigs().Unset(message.Chat.ID); err != nil {
		logger.Errorf("failed to unset log chat for %d: %v", message.Chat.ID, err)
		return replyTo(ctx.Context(), bot, message, noticeSystemError)
	}
	return replyTo(ctx.Context(), bot, message, noticeLogChatUnset)
}

// replyPolicyOrSystemError maps an operation error to the right
// user-facing notice. Policy violations get their specific message and
// are not logged as errors; anything else is a platform failure.
func replyPolicyOrSystemError(ctx *th.Context, bot *telego.Bot, message telego.Message, op string, targetID int64, err error) error {
	var notice string
	switch {
	case errors.Is(err, service.ErrPrivilegedTarget):
		notice = noticePrivileged
	case errors.Is(err, service.ErrAlreadyRestricted):
		notice = noticeAlreadyMuted
	case errors.Is(err, service.ErrNotRestricted):
		notice = noticeNotMuted
	case errors.Is(err, service.ErrAlreadyBanned):
		notice = noticeAlreadyBanned
	case errors.Is(err, service.ErrNoActiveWarnings):
		notice = noticeNoWarnings
	default:
		logger.Errorf("%s failed for user %d in chat %d: %v", op, targetID, message.Chat.ID, err)
		notice = noticeSystemError
	}
	return replyTo(ctx.Context(), bot, message, notice)
}

func listKind(cmd string) models.SanctionKind {
	switch cmd {
	case "ban_list":
		return models.SanctionBan
	case "warn_list":
		return models.SanctionWarn
	default:
		return models.SanctionMute
	}
}

func noRecordsNotice(kind models.SanctionKind) string {
	switch kind {
	case models.SanctionBan:
		return noticeNoBanRecords
	case models.SanctionWarn:
		return noticeNoWarnRecords
	default:
		return noticeNoMuteRecords
	}
}

// sendHelpMessage sends help information
func sendHelpMessage(ctx *th.Context, bot *telego.Bot, message telego.Message) error {
	helpText := "<b>tg-warden</b>\n" +
		"Moderation commands (administrators, in groups):\n" +
		"/warn — warn the replied-to user\n" +
		"/unwarn — remove one warning\n" +
		"/mute [id] [duration] [set] [reason] — restrict a user\n" +
		"/unmute [id] — lift a restriction\n" +
		"/ban [id] [duration] [set] [reason] — ban a user\n" +
		"/unban [id] — lift a ban\n" +
		"/mute_list [current], /ban_list [current], /warn_list — history\n" +
		"/set_log_chat &lt;chat_id&gt;, /unset_log_chat — audit channel\n\n" +
		"Durations: 30m, 2h, 7d or permanent. \"set\" updates an active sanction."

	return replyTo(ctx.Context(), bot, message, helpText)
}
