package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tg-warden/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.UserRecord{}, &models.SanctionRecord{}, &models.ChatConfig{}))
	return db
}

func TestGetOrCreate(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	record, err := repo.GetOrCreate(42, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(42), record.UserID)
	assert.Equal(t, int64(-100), record.ChatID)
	assert.Zero(t, record.WarnCount)
	assert.False(t, record.IsMuted)

	record.WarnCount = 3
	require.NoError(t, repo.Save(record))

	// The same pair resolves to the same row
	again, err := repo.GetOrCreate(42, -100)
	require.NoError(t, err)
	assert.Equal(t, record.ID, again.ID)
	assert.Equal(t, 3, again.WarnCount)

	// A different chat gets its own ledger entry
	other, err := repo.GetOrCreate(42, -200)
	require.NoError(t, err)
	assert.NotEqual(t, record.ID, other.ID)
	assert.Zero(t, other.WarnCount)
}

func TestSaveWithSanction(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	record, err := repo.GetOrCreate(42, -100)
	require.NoError(t, err)
	record.MuteCount = 1
	record.IsMuted = true

	until := time.Now().Add(time.Hour)
	sanction := &models.SanctionRecord{
		UserID:   42,
		ChatID:   -100,
		Kind:     models.SanctionMute,
		IssuedAt: time.Now(),
		Status:   "Muted",
		Until:    &until,
	}
	require.NoError(t, repo.SaveWithSanction(record, sanction))
	assert.NotZero(t, sanction.ID)

	saved, err := repo.GetOrCreate(42, -100)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.MuteCount)
	assert.True(t, saved.IsMuted)

	var count int64
	require.NoError(t, db.Model(&models.SanctionRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestClearExpiredRestrictions(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	now := time.Now()

	lapsed := now.Add(-time.Hour)
	live := now.Add(time.Hour)

	expiredMute, err := repo.GetOrCreate(1, -100)
	require.NoError(t, err)
	expiredMute.IsMuted = true
	expiredMute.MuteExpiry = &lapsed
	require.NoError(t, repo.Save(expiredMute))

	liveMute, err := repo.GetOrCreate(2, -100)
	require.NoError(t, err)
	liveMute.IsMuted = true
	liveMute.MuteExpiry = &live
	require.NoError(t, repo.Save(liveMute))

	permanentMute, err := repo.GetOrCreate(3, -100)
	require.NoError(t, err)
	permanentMute.IsMuted = true
	require.NoError(t, repo.Save(permanentMute))

	expiredBan, err := repo.GetOrCreate(4, -100)
	require.NoError(t, err)
	expiredBan.IsBanned = true
	expiredBan.BanExpiry = &lapsed
	require.NoError(t, repo.Save(expiredBan))

	cleared, err := repo.ClearExpiredRestrictions(now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cleared)

	check := func(userID int64, muted, banned bool) {
		t.Helper()
		rec, err := repo.GetOrCreate(userID, -100)
		require.NoError(t, err)
		assert.Equal(t, muted, rec.IsMuted, "user %d muted flag", userID)
		assert.Equal(t, banned, rec.IsBanned, "user %d banned flag", userID)
	}

	check(1, false, false)
	check(2, true, false)
	// A permanent mute has no expiry and is never swept
	check(3, true, false)
	check(4, false, false)
}
