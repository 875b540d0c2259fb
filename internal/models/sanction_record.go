package models

import "time"

// SanctionKind identifies the type of a sanction history entry.
type SanctionKind string

const (
	SanctionWarn SanctionKind = "warn"
	SanctionMute SanctionKind = "mute"
	SanctionBan  SanctionKind = "ban"
)

// SanctionRecord is one entry of the append-only audit trail. Records
// are written when a sanction is applied and never updated or deleted
// afterward; "currently active" is derived from the expiry and the
// ledger flags, not stored here.
type SanctionRecord struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	UserID int64        `gorm:"index:idx_sanction_user;not null"`
	ChatID int64        `gorm:"index:idx_sanction_chat;not null"`
	Kind   SanctionKind `gorm:"type:varchar(8);index;not null"`

	IssuedAt time.Time `gorm:"index;not null"`

	// Display name of the sanctioned user at the time of the sanction
	Name string `gorm:"type:varchar(255)"`

	// Status label, e.g. "Warned", "Muted", "Banned (Captcha Failed)"
	Status string `gorm:"type:varchar(64)"`

	// Rendered duration, "permanent" or an absolute "until ..." stamp
	Duration string `gorm:"type:varchar(64)"`

	Until  *time.Time
	Reason string `gorm:"type:text"`

	CreatedAt time.Time
}
