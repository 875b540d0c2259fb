package models

import "time"

// ChatConfig holds per-group settings, currently only the optional
// admin log channel. Absence of a row means no audit mirroring for
// that group.
type ChatConfig struct {
	GroupID   int64 `gorm:"primaryKey"`
	LogChatID int64 `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
