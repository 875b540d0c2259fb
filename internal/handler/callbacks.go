package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-warden/internal/logger"
	"tg-warden/internal/models"
	"tg-warden/internal/service"
)

// HandleCallbackQuery processes callback queries from inline keyboards
func HandleCallbackQuery(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery) error {
	// Skip if no data
	if query.Data == "" {
		return nil
	}

	logger.Debugf("received callback query: %s", query.Data)

	if strings.HasPrefix(query.Data, service.CaptchaCallbackPrefix) {
		return handleCaptchaCallback(ctx, bot, query)
	}
	if strings.HasPrefix(query.Data, "pag:") {
		return handlePaginationCallback(ctx, bot, query)
	}

	return nil
}

// handleCaptchaCallback resolves a press of the verification button
func handleCaptchaCallback(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery) error {
	boundID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, service.CaptchaCallbackPrefix), 10, 64)
	if err != nil {
		logger.Warningf("invalid captcha callback data: %s", query.Data)
		return nil
	}

	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		return nil
	}
	chatID := msg.Chat.ID

	verified, err := service.Captcha.HandleVerification(ctx.Context(), chatID, query.From.ID, boundID)
	if err != nil {
		logger.Errorf("captcha verification failed for user %d in chat %d: %v", boundID, chatID, err)
		return answerCallback(ctx, bot, query.ID, "Something went wrong, please try again.", true)
	}

	if !verified {
		if query.From.ID != boundID {
			return answerCallback(ctx, bot, query.ID, "This button is not for you.", true)
		}
		return answerCallback(ctx, bot, query.ID, "Verification has expired.", true)
	}

	return answerCallback(ctx, bot, query.ID, "Verification passed, welcome!", true)
}

// handlePaginationCallback re-renders a history page when a prev/next
// button is pressed. Data format: pag:<kind>:<page>:<active>
func handlePaginationCallback(ctx *th.Context, bot *telego.Bot, query telego.CallbackQuery) error {
	parts := strings.Split(query.Data, ":")
	if len(parts) != 4 {
		logger.Warningf("invalid pagination callback data: %s", query.Data)
		return nil
	}

	kind := models.SanctionKind(parts[1])
	pageNum, err := strconv.Atoi(parts[2])
	if err != nil || pageNum < 1 {
		return nil
	}
	activeOnly := parts[3] == "1"

	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		return nil
	}

	// Only admins may page through the history
	isAdmin, err := isUserAdmin(ctx.Context(), bot, msg.Chat.ID, query.From.ID)
	if err != nil || !isAdmin {
		return answerCallback(ctx, bot, query.ID, "This list is for administrators only.", true)
	}

	page, err := service.History.Page(msg.Chat.ID, kind, pageNum, activeOnly)
	if err != nil {
		if errors.Is(err, service.ErrNoRecords) {
			return answerCallback(ctx, bot, query.ID, noRecordsNotice(kind), false)
		}
		logger.Errorf("history pagination failed for chat %d: %v", msg.Chat.ID, err)
		return answerCallback(ctx, bot, query.ID, noticeSystemError, false)
	}

	_, err = bot.EditMessageText(ctx.Context(), &telego.EditMessageTextParams{
		ChatID:      telego.ChatID{ID: msg.Chat.ID},
		MessageID:   msg.MessageID,
		Text:        formatHistoryPage(kind, page, activeOnly),
		ParseMode:   "HTML",
		ReplyMarkup: paginationKeyboard(kind, page, activeOnly),
	})
	if err != nil {
		logger.Warningf("failed to edit history page in chat %d: %v", msg.Chat.ID, err)
	}

	return answerCallback(ctx, bot, query.ID, "", false)
}

func answerCallback(ctx *th.Context, bot *telego.Bot, queryID, text string, alert bool) error {
	err := bot.AnswerCallbackQuery(ctx.Context(), &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		logger.Warningf("error answering callback query: %v", err)
	}
	return nil
}
