package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

func newHistoryTest(t *testing.T, perPage int) (*HistoryService, *storage.SanctionRepository, *storage.UserRepository) {
	t.Helper()

	db := newTestDB(t)
	sanctions := storage.NewSanctionRepository(db)
	users := storage.NewUserRepository(db)
	return NewHistoryService(sanctions, perPage), sanctions, users
}

func seedWarnings(t *testing.T, sanctions *storage.SanctionRepository, n int) {
	t.Helper()

	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		require.NoError(t, sanctions.Create(&models.SanctionRecord{
			UserID:   int64(1000 + i),
			ChatID:   testChatID,
			Kind:     models.SanctionWarn,
			IssuedAt: base.Add(time.Duration(i) * time.Minute),
			Name:     fmt.Sprintf("user-%d", i),
			Status:   "Warned",
		}))
	}
}

func TestHistoryPageCount(t *testing.T) {
	svc, sanctions, _ := newHistoryTest(t, 10)
	seedWarnings(t, sanctions, 25)

	page, err := svc.Page(testChatID, models.SanctionWarn, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Records, 10)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)

	last, err := svc.Page(testChatID, models.SanctionWarn, 3, false)
	require.NoError(t, err)
	assert.Len(t, last.Records, 5)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestHistoryOrderedNewestFirst(t *testing.T) {
	svc, sanctions, _ := newHistoryTest(t, 10)
	seedWarnings(t, sanctions, 12)

	page, err := svc.Page(testChatID, models.SanctionWarn, 1, false)
	require.NoError(t, err)
	for i := 1; i < len(page.Records); i++ {
		assert.False(t, page.Records[i].IssuedAt.After(page.Records[i-1].IssuedAt), "records must be ordered newest first")
	}
}

func TestHistoryFullReconstruction(t *testing.T) {
	svc, sanctions, _ := newHistoryTest(t, 4)
	seedWarnings(t, sanctions, 11)

	seen := make(map[uint]bool)
	var prev *time.Time
	for p := 1; p <= 3; p++ {
		page, err := svc.Page(testChatID, models.SanctionWarn, p, false)
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalPages)
		for _, rec := range page.Records {
			assert.False(t, seen[rec.ID], "record %d repeated across pages", rec.ID)
			seen[rec.ID] = true
			if prev != nil {
				assert.False(t, rec.IssuedAt.After(*prev), "ordering must hold across page boundaries")
			}
			ts := rec.IssuedAt
			prev = &ts
		}
	}
	assert.Len(t, seen, 11, "walking all pages reconstructs the full set")
}

func TestHistoryPageClamped(t *testing.T) {
	svc, sanctions, _ := newHistoryTest(t, 10)
	seedWarnings(t, sanctions, 5)

	page, err := svc.Page(testChatID, models.SanctionWarn, 99, false)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)

	page, err = svc.Page(testChatID, models.SanctionWarn, -1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestHistoryNoRecords(t *testing.T) {
	svc, _, _ := newHistoryTest(t, 10)

	_, err := svc.Page(testChatID, models.SanctionWarn, 1, false)
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.True(t, IsPolicyViolation(err))
}

func TestHistoryActiveOnlyMutes(t *testing.T) {
	svc, sanctions, users := newHistoryTest(t, 10)
	now := time.Now()

	// Two muted users with live windows, one whose mute already lapsed
	for i, live := range []bool{true, true, false} {
		userID := int64(2000 + i)
		until := now.Add(time.Hour)
		if !live {
			until = now.Add(-time.Hour)
		}
		require.NoError(t, sanctions.Create(&models.SanctionRecord{
			UserID:   userID,
			ChatID:   testChatID,
			Kind:     models.SanctionMute,
			IssuedAt: now.Add(time.Duration(i) * time.Second),
			Status:   "Muted",
			Until:    &until,
		}))

		record, err := users.GetOrCreate(userID, testChatID)
		require.NoError(t, err)
		record.IsMuted = live
		record.MuteExpiry = &until
		require.NoError(t, users.Save(record))
	}

	all, err := svc.Page(testChatID, models.SanctionMute, 1, false)
	require.NoError(t, err)
	assert.Len(t, all.Records, 3)

	active, err := svc.Page(testChatID, models.SanctionMute, 1, true)
	require.NoError(t, err)
	assert.Len(t, active.Records, 2)
	for _, rec := range active.Records {
		require.NotNil(t, rec.Until)
		assert.True(t, rec.Until.After(now))
	}
}
