package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

func newTestRepo(t *testing.T) *storage.UserRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserRecord{}))

	return storage.NewUserRepository(db)
}

func TestStartRejectsBadSpec(t *testing.T) {
	sched := New(newTestRepo(t))
	assert.Error(t, sched.Start("not a cron spec"))
}

func TestStartAndStop(t *testing.T) {
	sched := New(newTestRepo(t))
	require.NoError(t, sched.Start("*/5 * * * *"))
	sched.Stop()
}

func TestSweepExpiredClearsLapsedFlags(t *testing.T) {
	users := newTestRepo(t)
	sched := New(users)

	lapsed := time.Now().Add(-time.Minute)
	record, err := users.GetOrCreate(1, -100)
	require.NoError(t, err)
	record.IsMuted = true
	record.MuteExpiry = &lapsed
	require.NoError(t, users.Save(record))

	sched.sweepExpired()

	record, err = users.GetOrCreate(1, -100)
	require.NoError(t, err)
	assert.False(t, record.IsMuted)
	assert.Nil(t, record.MuteExpiry)
}
