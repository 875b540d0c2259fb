package storage

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-warden/internal/models"
)

// ChatConfigRepository handles database operations for ChatConfig
type ChatConfigRepository struct {
	db *gorm.DB
}

// NewChatConfigRepository creates a new ChatConfigRepository
func NewChatConfigRepository(db *gorm.DB) *ChatConfigRepository {
	return &ChatConfigRepository{db: db}
}

// MigrateTable ensures the ChatConfig table exists
func (r *ChatConfigRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ChatConfig{})
}

// Get retrieves a group's config, or nil if none is set
func (r *ChatConfigRepository) Get(groupID int64) (*models.ChatConfig, error) {
	var cfg models.ChatConfig
	result := r.db.Where("group_id = ?", groupID).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cfg, nil
}

// Set creates or updates a group's log channel
func (r *ChatConfigRepository) Set(groupID, logChatID int64) error {
	cfg := models.ChatConfig{GroupID: groupID, LogChatID: logChatID}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"log_chat_id", "updated_at"}),
	}).Create(&cfg).Error
}

// Unset removes a group's log channel configuration
func (r *ChatConfigRepository) Unset(groupID int64) error {
	return r.db.Where("group_id = ?", groupID).Delete(&models.ChatConfig{}).Error
}
