package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-warden/internal/models"
	"tg-warden/internal/service"
)

func samplePage(page, total int) *service.HistoryPage {
	issued := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
	return &service.HistoryPage{
		Records: []*models.SanctionRecord{
			{
				UserID:   42,
				ChatID:   -100,
				Kind:     models.SanctionMute,
				IssuedAt: issued,
				Name:     "Alice <script>",
				Status:   "Muted",
				Duration: "until 2026-02-01 12:30",
				Reason:   "flooding",
			},
		},
		Page:       page,
		TotalPages: total,
		HasPrev:    page > 1,
		HasNext:    page < total,
	}
}

func TestFormatHistoryPage(t *testing.T) {
	text := formatHistoryPage(models.SanctionMute, samplePage(2, 3), false)

	assert.Contains(t, text, "Mute history")
	assert.Contains(t, text, "page 2/3")
	assert.Contains(t, text, "2026-02-01 10:30")
	assert.Contains(t, text, "until 2026-02-01 12:30")
	assert.Contains(t, text, "flooding")

	// User-supplied names are escaped, not rendered as markup
	assert.NotContains(t, text, "<script>")
	assert.Contains(t, text, "Alice &lt;script&gt;")
}

func TestFormatHistoryPageActiveScope(t *testing.T) {
	text := formatHistoryPage(models.SanctionBan, samplePage(1, 1), true)
	assert.Contains(t, text, "Ban history")
	assert.Contains(t, text, "Active only")
}

func TestPaginationKeyboard(t *testing.T) {
	// Single page needs no keyboard
	assert.Nil(t, paginationKeyboard(models.SanctionMute, samplePage(1, 1), false))

	// First of several pages has a next button only
	kb := paginationKeyboard(models.SanctionMute, samplePage(1, 3), false)
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, "pag:mute:2:0", kb.InlineKeyboard[0][0].CallbackData)

	// Middle page has both directions, carrying the active filter
	kb = paginationKeyboard(models.SanctionBan, samplePage(2, 3), true)
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "pag:ban:1:1", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "pag:ban:3:1", kb.InlineKeyboard[0][1].CallbackData)
}
