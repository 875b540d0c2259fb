package handler

import (
	"fmt"
	"html"
	"strings"

	"github.com/mymmrac/telego"

	"tg-warden/internal/models"
	"tg-warden/internal/service"
)

// formatHistoryPage renders one page of sanction history as HTML
func formatHistoryPage(kind models.SanctionKind, page *service.HistoryPage, activeOnly bool) string {
	scope := "Full history"
	if activeOnly {
		scope = "Active only"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> — %s (page %d/%d)\n", historyHeader(kind), scope, page.Page, page.TotalPages)

	for _, record := range page.Records {
		name := record.Name
		if name == "" {
			name = "Unknown"
		}
		reason := record.Reason
		if reason == "" {
			reason = "None"
		}

		fmt.Fprintf(&b, "\n<b>%s</b> (<code>%d</code>)\n%s — %s",
			html.EscapeString(name),
			record.UserID,
			record.IssuedAt.UTC().Format("2006-01-02 15:04"),
			html.EscapeString(record.Status),
		)
		if record.Duration != "" {
			fmt.Fprintf(&b, ", %s", record.Duration)
		}
		fmt.Fprintf(&b, "\nReason: %s\n", html.EscapeString(reason))
	}

	return b.String()
}

func historyHeader(kind models.SanctionKind) string {
	switch kind {
	case models.SanctionBan:
		return "Ban history"
	case models.SanctionWarn:
		return "Warning history"
	default:
		return "Mute history"
	}
}

// paginationKeyboard builds prev/next buttons for a history page.
// Returns nil when there is only one page.
func paginationKeyboard(kind models.SanctionKind, page *service.HistoryPage, activeOnly bool) *telego.InlineKeyboardMarkup {
	var row []telego.InlineKeyboardButton

	active := "0"
	if activeOnly {
		active = "1"
	}

	if page.HasPrev {
		row = append(row, telego.InlineKeyboardButton{
			Text:         "⬅️ Back",
			CallbackData: fmt.Sprintf("pag:%s:%d:%s", kind, page.Page-1, active),
		})
	}
	if page.HasNext {
		row = append(row, telego.InlineKeyboardButton{
			Text:         "Next ➡️",
			CallbackData: fmt.Sprintf("pag:%s:%d:%s", kind, page.Page+1, active),
		})
	}

	if len(row) == 0 {
		return nil
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{row}}
}
