package models

import "time"

// UserRecord tracks a user's standing within a single chat: violation
// counters, current restriction flags and expiries. One row per
// (user, chat) pair, created lazily on first observed activity and
// never deleted.
type UserRecord struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	UserID int64 `gorm:"uniqueIndex:idx_user_chat;not null"`
	ChatID int64 `gorm:"uniqueIndex:idx_user_chat;not null"`

	WarnCount    int   `gorm:"default:0"`
	MuteCount    int   `gorm:"default:0"`
	BanCount     int   `gorm:"default:0"`
	MessageCount int64 `gorm:"default:0"`

	IsMuted    bool `gorm:"default:false"`
	MuteExpiry *time.Time

	IsBanned  bool `gorm:"default:false"`
	BanExpiry *time.Time

	JoinedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
