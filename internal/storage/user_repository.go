package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"tg-warden/internal/models"
)

// UserRepository handles database operations for UserRecord
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// MigrateTable ensures the UserRecord table exists
func (r *UserRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.UserRecord{})
}

// GetOrCreate fetches the record for a (user, chat) pair, creating a
// zero-valued one if none exists yet.
func (r *UserRepository) GetOrCreate(userID, chatID int64) (*models.UserRecord, error) {
	var record models.UserRecord
	result := r.db.Where("user_id = ? AND chat_id = ?", userID, chatID).First(&record)
	if result.Error == nil {
		return &record, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	record = models.UserRecord{UserID: userID, ChatID: chatID}
	if err := r.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Save persists a mutated record
func (r *UserRepository) Save(record *models.UserRecord) error {
	return r.db.Save(record).Error
}

// ClearExpiredRestrictions resets mute and ban flags whose expiry has
// passed. Telegram lifts the platform restriction by itself; the
// ledger must follow so state checks stay truthful.
func (r *UserRepository) ClearExpiredRestrictions(now time.Time) (int64, error) {
	muted := r.db.Model(&models.UserRecord{}).
		Where("is_muted = ? AND mute_expiry IS NOT NULL AND mute_expiry <= ?", true, now).
		Updates(map[string]interface{}{"is_muted": false, "mute_expiry": nil})
	if muted.Error != nil {
		return 0, muted.Error
	}

	banned := r.db.Model(&models.UserRecord{}).
		Where("is_banned = ? AND ban_expiry IS NOT NULL AND ban_expiry <= ?", true, now).
		Updates(map[string]interface{}{"is_banned": false, "ban_expiry": nil})
	if banned.Error != nil {
		return muted.RowsAffected, banned.Error
	}

	return muted.RowsAffected + banned.RowsAffected, nil
}

// SaveWithSanction commits a ledger mutation together with its history
// entry in a single transaction, so counters and the audit trail can
// never disagree.
func (r *UserRepository) SaveWithSanction(record *models.UserRecord, sanction *models.SanctionRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(record).Error; err != nil {
			return err
		}
		if sanction != nil {
			if err := tx.Create(sanction).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
