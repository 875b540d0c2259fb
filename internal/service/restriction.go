package service

import (
	"context"
	"fmt"
	"time"

	"tg-warden/internal/gateway"
	"tg-warden/internal/logger"
	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

// RestrictionService owns every warn/mute/ban state transition. All
// operations serialize per (chat, user), apply the platform action
// first and then commit the ledger mutation together with its history
// entry in one transaction.
type RestrictionService struct {
	gw        gateway.ChatGateway
	users     *storage.UserRepository
	sanctions *storage.SanctionRepository
	audit     *AuditBroadcaster
	policy    *DurationPolicy
	maxWarns  int
	locks     *KeyedLocks
	now       func() time.Time
}

// NewRestrictionService creates a RestrictionService. locks must be
// the same instance given to the captcha service so every mutation of
// a (chat, user) pair serializes on one mutex.
func NewRestrictionService(gw gateway.ChatGateway, users *storage.UserRepository, sanctions *storage.SanctionRepository, audit *AuditBroadcaster, policy *DurationPolicy, maxWarns int, locks *KeyedLocks) *RestrictionService {
	return &RestrictionService{
		gw:        gw,
		users:     users,
		sanctions: sanctions,
		audit:     audit,
		policy:    policy,
		maxWarns:  maxWarns,
		locks:     locks,
		now:       time.Now,
	}
}

// WarnResult is the outcome of a Warn call: either a plain warning or
// the auto-mute escalation that fired when the counter hit the limit.
type WarnResult struct {
	AutoMuted     bool
	CurrentWarns  int
	MaxWarns      int
	MuteCount     int
	Duration      time.Duration
	DurationLabel string
	Until         *time.Time
}

// MuteResult reports the applied mute window
type MuteResult struct {
	MuteCount     int
	DurationLabel string
	Until         *time.Time
	Extended      bool
}

// BanResult reports the applied ban window
type BanResult struct {
	BanCount      int
	DurationLabel string
	Until         *time.Time
	Extended      bool
}

// UnbanResult distinguishes lifting a real ban from unbanning someone
// who was not banned (not an error at this layer)
type UnbanResult struct {
	WasBanned bool
}

// guardTarget rejects sanctions against the chat owner or admins
func (s *RestrictionService) guardTarget(ctx context.Context, chatID, userID int64) (gateway.MemberInfo, error) {
	info, err := s.gw.MemberStatus(ctx, chatID, userID)
	if err != nil {
		return gateway.MemberInfo{}, err
	}
	if info.IsPrivileged() {
		return info, ErrPrivilegedTarget
	}
	return info, nil
}

// Warn increments the target's warning counter. Reaching the limit
// resets the counter and converts into a mute in the same operation;
// a warning never stacks past the threshold.
func (s *RestrictionService) Warn(ctx context.Context, chatID int64, target Target, reason string, origin *gateway.MessageRef) (*WarnResult, error) {
	defer s.locks.acquire(chatID, target.ID)()

	if _, err := s.guardTarget(ctx, chatID, target.ID); err != nil {
		return nil, err
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return nil, fmt.Errorf("load user record: %w", err)
	}

	newWarns := record.WarnCount + 1

	if newWarns < s.maxWarns {
		record.WarnCount = newWarns
		sanction := &models.SanctionRecord{
			UserID:   target.ID,
			ChatID:   chatID,
			Kind:     models.SanctionWarn,
			IssuedAt: s.now(),
			Name:     target.Name,
			Status:   "Warned",
			Reason:   reason,
		}
		if err := s.users.SaveWithSanction(record, sanction); err != nil {
			return nil, fmt.Errorf("persist warning: %w", err)
		}

		logger.Infof("warning %d/%d issued to user %d in chat %d", newWarns, s.maxWarns, target.ID, chatID)
		action := fmt.Sprintf("Warning (%d/%d)", newWarns, s.maxWarns)
		s.audit.Broadcast(ctx, chatID, target, action, "", reason, origin)

		return &WarnResult{CurrentWarns: newWarns, MaxWarns: s.maxWarns}, nil
	}

	// Threshold reached: one atomic escalation, not a warn plus a mute
	muteCount := record.MuteCount + 1
	duration := s.policy.MuteDuration(muteCount)

	var until *time.Time
	if !s.policy.IsPermanent(duration) {
		t := s.now().Add(duration)
		until = &t
	}

	if err := s.gw.Restrict(ctx, chatID, target.ID, until); err != nil {
		return nil, err
	}

	record.WarnCount = 0
	record.MuteCount = muteCount
	record.IsMuted = true
	record.MuteExpiry = until

	label := FormatDuration(until)
	sanction := &models.SanctionRecord{
		UserID:   target.ID,
		ChatID:   chatID,
		Kind:     models.SanctionMute,
		IssuedAt: s.now(),
		Name:     target.Name,
		Status:   "Auto-Muted",
		Duration: label,
		Until:    until,
		Reason:   reason,
	}
	if err := s.users.SaveWithSanction(record, sanction); err != nil {
		return nil, fmt.Errorf("persist auto-mute: %w", err)
	}

	logger.Infof("user %d auto-muted in chat %d after %d warnings (mute #%d, %s)", target.ID, chatID, s.maxWarns, muteCount, label)
	action := fmt.Sprintf("Auto-Mute (%d/%d Warnings)", s.maxWarns, s.maxWarns)
	s.audit.Broadcast(ctx, chatID, target, action, label, reason, origin)

	return &WarnResult{
		AutoMuted:     true,
		CurrentWarns:  0,
		MaxWarns:      s.maxWarns,
		MuteCount:     muteCount,
		Duration:      duration,
		DurationLabel: label,
		Until:         until,
	}, nil
}

// Unwarn removes one warning. Fails if the counter is already zero;
// it never goes negative.
func (s *RestrictionService) Unwarn(ctx context.Context, chatID int64, target Target) (int, error) {
	defer s.locks.acquire(chatID, target.ID)()

	if _, err := s.guardTarget(ctx, chatID, target.ID); err != nil {
		return 0, err
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return 0, fmt.Errorf("load user record: %w", err)
	}

	if record.WarnCount == 0 {
		return 0, ErrNoActiveWarnings
	}

	record.WarnCount--
	if err := s.users.Save(record); err != nil {
		return 0, fmt.Errorf("persist unwarn: %w", err)
	}

	s.audit.Broadcast(ctx, chatID, target, "Unwarn", "", "", nil)
	return record.WarnCount, nil
}

// Mute restricts the target for the requested window. A nil until
// means permanent. Muting an already-muted user fails unless extend is
// set, in which case the window is replaced and a fresh history entry
// is written.
func (s *RestrictionService) Mute(ctx context.Context, chatID int64, target Target, until *time.Time, reason string, extend bool, origin *gateway.MessageRef) (*MuteResult, error) {
	defer s.locks.acquire(chatID, target.ID)()

	info, err := s.guardTarget(ctx, chatID, target.ID)
	if err != nil {
		return nil, err
	}

	alreadyMuted := info.IsMuted()
	if alreadyMuted && !extend {
		return nil, ErrAlreadyRestricted
	}

	if err := s.gw.Restrict(ctx, chatID, target.ID, until); err != nil {
		return nil, err
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return nil, fmt.Errorf("load user record: %w", err)
	}

	record.IsMuted = true
	record.MuteExpiry = until
	record.MuteCount++

	label := FormatDuration(until)
	sanction := &models.SanctionRecord{
		UserID:   target.ID,
		ChatID:   chatID,
		Kind:     models.SanctionMute,
		IssuedAt: s.now(),
		Name:     target.Name,
		Status:   "Muted",
		Duration: label,
		Until:    until,
		Reason:   reason,
	}
	if err := s.users.SaveWithSanction(record, sanction); err != nil {
		return nil, fmt.Errorf("persist mute: %w", err)
	}

	action := "Mute"
	if alreadyMuted {
		action = "Mute (Update)"
	}
	logger.Infof("user %d muted in chat %d (%s)", target.ID, chatID, label)
	s.audit.Broadcast(ctx, chatID, target, action, label, reason, origin)

	return &MuteResult{
		MuteCount:     record.MuteCount,
		DurationLabel: label,
		Until:         until,
		Extended:      alreadyMuted,
	}, nil
}

// Unmute lifts a mute and restores full send permissions. Fails if the
// target is not currently muted.
func (s *RestrictionService) Unmute(ctx context.Context, chatID int64, target Target) error {
	defer s.locks.acquire(chatID, target.ID)()

	info, err := s.gw.MemberStatus(ctx, chatID, target.ID)
	if err != nil {
		return err
	}
	if !info.IsMuted() {
		return ErrNotRestricted
	}

	if err := s.gw.Unrestrict(ctx, chatID, target.ID); err != nil {
		return err
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return fmt.Errorf("load user record: %w", err)
	}

	record.IsMuted = false
	record.MuteExpiry = nil
	if err := s.users.Save(record); err != nil {
		return fmt.Errorf("persist unmute: %w", err)
	}

	logger.Infof("user %d unmuted in chat %d", target.ID, chatID)
	s.audit.Broadcast(ctx, chatID, target, "Unmute", "", "", nil)
	return nil
}

// Ban removes the target from the chat, optionally until a deadline.
// Banning an already-banned user fails unless extend is set.
func (s *RestrictionService) Ban(ctx context.Context, chatID int64, target Target, until *time.Time, reason string, extend bool, origin *gateway.MessageRef) (*BanResult, error) {
	defer s.locks.acquire(chatID, target.ID)()

	info, err := s.guardTarget(ctx, chatID, target.ID)
	if err != nil {
		return nil, err
	}

	alreadyBanned := info.Role == gateway.RoleKicked
	if alreadyBanned && !extend {
		return nil, ErrAlreadyBanned
	}

	if err := s.gw.Ban(ctx, chatID, target.ID, until); err != nil {
		return nil, err
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return nil, fmt.Errorf("load user record: %w", err)
	}

	record.IsBanned = true
	record.BanExpiry = until
	record.BanCount++

	label := FormatDuration(until)
	sanction := &models.SanctionRecord{
		UserID:   target.ID,
		ChatID:   chatID,
		Kind:     models.SanctionBan,
		IssuedAt: s.now(),
		Name:     target.Name,
		Status:   "Banned",
		Duration: label,
		Until:    until,
		Reason:   reason,
	}
	if err := s.users.SaveWithSanction(record, sanction); err != nil {
		return nil, fmt.Errorf("persist ban: %w", err)
	}

	action := "Ban"
	if alreadyBanned {
		action = "Ban (Update)"
	}
	logger.Infof("user %d banned in chat %d (%s)", target.ID, chatID, label)
	s.audit.Broadcast(ctx, chatID, target, action, label, reason, origin)

	return &BanResult{
		BanCount:      record.BanCount,
		DurationLabel: label,
		Until:         until,
		Extended:      alreadyBanned,
	}, nil
}

// Unban lifts a ban. Idempotent at the platform level; the result
// tells the caller whether there was a ban to lift.
func (s *RestrictionService) Unban(ctx context.Context, chatID int64, target Target) (*UnbanResult, error) {
	defer s.locks.acquire(chatID, target.ID)()

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return nil, fmt.Errorf("load user record: %w", err)
	}

	wasBanned := record.IsBanned
	if info, err := s.gw.MemberStatus(ctx, chatID, target.ID); err == nil {
		wasBanned = wasBanned || info.Role == gateway.RoleKicked
	}

	if err := s.gw.Unban(ctx, chatID, target.ID); err != nil {
		return nil, err
	}

	record.IsBanned = false
	record.BanExpiry = nil
	if err := s.users.Save(record); err != nil {
		return nil, fmt.Errorf("persist unban: %w", err)
	}

	logger.Infof("user %d unbanned in chat %d (was banned: %v)", target.ID, chatID, wasBanned)
	s.audit.Broadcast(ctx, chatID, target, "Unban", "", "", nil)

	return &UnbanResult{WasBanned: wasBanned}, nil
}

// NoteMessage counts one observed message from a user, creating the
// ledger record lazily on first activity.
func (s *RestrictionService) NoteMessage(chatID, userID int64) error {
	defer s.locks.acquire(chatID, userID)()

	record, err := s.users.GetOrCreate(userID, chatID)
	if err != nil {
		return err
	}
	record.MessageCount++
	return s.users.Save(record)
}
