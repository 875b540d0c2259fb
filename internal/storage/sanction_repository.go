package storage

import (
	"time"

	"gorm.io/gorm"

	"tg-warden/internal/models"
)

// SanctionRepository handles database operations for SanctionRecord
type SanctionRepository struct {
	db *gorm.DB
}

// NewSanctionRepository creates a new SanctionRepository
func NewSanctionRepository(db *gorm.DB) *SanctionRepository {
	return &SanctionRepository{db: db}
}

// MigrateTable ensures the SanctionRecord table exists
func (r *SanctionRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.SanctionRecord{})
}

// Create appends a new history entry
func (r *SanctionRepository) Create(record *models.SanctionRecord) error {
	return r.db.Create(record).Error
}

// query builds the filtered query for a chat's history of one kind.
// activeOnly keeps records whose window has not elapsed and whose
// restriction the ledger still shows as in force; records themselves
// are immutable, so liveness is derived, not stored.
func (r *SanctionRepository) query(chatID int64, kind models.SanctionKind, activeOnly bool, now time.Time) *gorm.DB {
	q := r.db.Model(&models.SanctionRecord{}).
		Where("sanction_records.chat_id = ? AND sanction_records.kind = ?", chatID, kind)

	if activeOnly {
		q = q.Where("sanction_records.until IS NULL OR sanction_records.until > ?", now)
		switch kind {
		case models.SanctionMute:
			q = q.Joins("JOIN user_records ON user_records.user_id = sanction_records.user_id AND user_records.chat_id = sanction_records.chat_id AND user_records.is_muted = ?", true)
		case models.SanctionBan:
			q = q.Joins("JOIN user_records ON user_records.user_id = sanction_records.user_id AND user_records.chat_id = sanction_records.chat_id AND user_records.is_banned = ?", true)
		}
	}

	return q
}

// Count returns the number of matching history entries
func (r *SanctionRepository) Count(chatID int64, kind models.SanctionKind, activeOnly bool, now time.Time) (int64, error) {
	var count int64
	err := r.query(chatID, kind, activeOnly, now).Count(&count).Error
	return count, err
}

// List returns matching history entries ordered by issue time
// descending, sliced by offset and limit
func (r *SanctionRepository) List(chatID int64, kind models.SanctionKind, activeOnly bool, now time.Time, offset, limit int) ([]*models.SanctionRecord, error) {
	var records []*models.SanctionRecord
	err := r.query(chatID, kind, activeOnly, now).
		Order("sanction_records.issued_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	return records, err
}
