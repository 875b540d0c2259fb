package gateway

import (
	"context"
	"time"

	"github.com/mymmrac/telego"
)

// MemberRole is the chat-level role of a user as reported by the platform
type MemberRole string

const (
	RoleOwner      MemberRole = "owner"
	RoleAdmin      MemberRole = "admin"
	RoleMember     MemberRole = "member"
	RoleRestricted MemberRole = "restricted"
	RoleLeft       MemberRole = "left"
	RoleKicked     MemberRole = "kicked"
)

// MemberInfo is the live membership state of a user in a chat
type MemberInfo struct {
	Role    MemberRole
	CanSend bool
}

// IsPrivileged reports whether the member may not be sanctioned
func (m MemberInfo) IsPrivileged() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// IsMuted reports whether the member is currently fully restricted
func (m MemberInfo) IsMuted() bool {
	return m.Role == RoleRestricted && !m.CanSend
}

// IsGone reports whether the member has left or was removed
func (m MemberInfo) IsGone() bool {
	return m.Role == RoleLeft || m.Role == RoleKicked
}

// MessageRef identifies a sent message for later deletion or forwarding
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// ChatGateway is the outbound action surface of the moderation engine.
// Implementations perform the actual platform calls; tests substitute
// a fake.
type ChatGateway interface {
	// MemberStatus returns the live membership state of a user
	MemberStatus(ctx context.Context, chatID, userID int64) (MemberInfo, error)

	// Restrict removes all send permissions from a user, optionally
	// until a deadline (nil means indefinitely)
	Restrict(ctx context.Context, chatID, userID int64, until *time.Time) error

	// Unrestrict restores the chat's default permissions for a user
	Unrestrict(ctx context.Context, chatID, userID int64) error

	// Ban removes a user from the chat, optionally until a deadline
	Ban(ctx context.Context, chatID, userID int64, until *time.Time) error

	// Unban lifts a ban; a no-op at the platform level if the user is
	// not banned
	Unban(ctx context.Context, chatID, userID int64) error

	// SendMessage sends an HTML-formatted message, optionally with an
	// inline keyboard
	SendMessage(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) (MessageRef, error)

	// DeleteMessage removes a previously sent message
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// ForwardMessage forwards an existing message to another chat
	ForwardMessage(ctx context.Context, toChatID int64, from MessageRef) error
}
