package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-warden/internal/models"
)

func TestSanctionListFiltersByChatAndKind(t *testing.T) {
	db := newTestDB(t)
	repo := NewSanctionRepository(db)
	now := time.Now()

	seed := []struct {
		chatID int64
		kind   models.SanctionKind
	}{
		{-100, models.SanctionWarn},
		{-100, models.SanctionWarn},
		{-100, models.SanctionMute},
		{-200, models.SanctionWarn},
	}
	for i, s := range seed {
		require.NoError(t, repo.Create(&models.SanctionRecord{
			UserID:   int64(i + 1),
			ChatID:   s.chatID,
			Kind:     s.kind,
			IssuedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	count, err := repo.Count(-100, models.SanctionWarn, false, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	records, err := repo.List(-100, models.SanctionWarn, false, now, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, int64(-100), rec.ChatID)
		assert.Equal(t, models.SanctionWarn, rec.Kind)
	}
}

func TestSanctionActiveFilterDerivedFromLedger(t *testing.T) {
	db := newTestDB(t)
	repo := NewSanctionRepository(db)
	users := NewUserRepository(db)
	now := time.Now()

	live := now.Add(time.Hour)
	lapsed := now.Add(-time.Hour)

	// User 1: window still open and the ledger agrees
	require.NoError(t, repo.Create(&models.SanctionRecord{
		UserID: 1, ChatID: -100, Kind: models.SanctionBan, IssuedAt: now, Until: &live,
	}))
	rec1, err := users.GetOrCreate(1, -100)
	require.NoError(t, err)
	rec1.IsBanned = true
	require.NoError(t, users.Save(rec1))

	// User 2: window elapsed
	require.NoError(t, repo.Create(&models.SanctionRecord{
		UserID: 2, ChatID: -100, Kind: models.SanctionBan, IssuedAt: now, Until: &lapsed,
	}))
	rec2, err := users.GetOrCreate(2, -100)
	require.NoError(t, err)
	rec2.IsBanned = true
	require.NoError(t, users.Save(rec2))

	// User 3: window open but the ban was lifted early
	require.NoError(t, repo.Create(&models.SanctionRecord{
		UserID: 3, ChatID: -100, Kind: models.SanctionBan, IssuedAt: now, Until: &live,
	}))
	_, err = users.GetOrCreate(3, -100)
	require.NoError(t, err)

	count, err := repo.Count(-100, models.SanctionBan, true, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	records, err := repo.List(-100, models.SanctionBan, true, now, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].UserID)

	// Without the filter all three history rows remain visible
	all, err := repo.Count(-100, models.SanctionBan, false, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all)
}

func TestChatConfigSetGetUnset(t *testing.T) {
	repo := NewChatConfigRepository(newTestDB(t))

	cfg, err := repo.Get(-100)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, repo.Set(-100, -999))
	cfg, err = repo.Get(-100)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, int64(-999), cfg.LogChatID)

	// Setting again replaces, not duplicates
	require.NoError(t, repo.Set(-100, -888))
	cfg, err = repo.Get(-100)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, int64(-888), cfg.LogChatID)

	require.NoError(t, repo.Unset(-100))
	cfg, err = repo.Get(-100)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
