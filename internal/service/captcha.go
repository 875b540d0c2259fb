package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"tg-warden/internal/crash"
	"tg-warden/internal/gateway"
	"tg-warden/internal/logger"
	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

// CaptchaCallbackPrefix tags the verification button's callback data;
// the suffix is the user ID the button is bound to.
const CaptchaCallbackPrefix = "captcha:"

type pendingVerification struct {
	target Target
	prompt gateway.MessageRef
	timer  *time.Timer
}

// CaptchaService gatekeeps new members: a join fully restricts the
// user and starts a countdown racing the verification button. One
// cancellable timer per pending (chat, user); the expiry handler
// re-reads live membership, so a verification that landed first always
// wins.
type CaptchaService struct {
	gw        gateway.ChatGateway
	users     *storage.UserRepository
	sanctions *storage.SanctionRepository
	audit     *AuditBroadcaster
	timeout   time.Duration
	banWindow time.Duration
	locks     *KeyedLocks
	now       func() time.Time

	mu      sync.Mutex
	pending map[userChatKey]*pendingVerification
}

// NewCaptchaService creates a CaptchaService. locks must be the same
// instance the restriction service uses: countdown expiry runs on a
// timer goroutine and its ledger writes race command-driven sanctions
// on the same pair otherwise.
func NewCaptchaService(gw gateway.ChatGateway, users *storage.UserRepository, sanctions *storage.SanctionRepository, audit *AuditBroadcaster, timeout, banWindow time.Duration, locks *KeyedLocks) *CaptchaService {
	return &CaptchaService{
		gw:        gw,
		users:     users,
		sanctions: sanctions,
		audit:     audit,
		timeout:   timeout,
		banWindow: banWindow,
		locks:     locks,
		now:       time.Now,
		pending:   make(map[userChatKey]*pendingVerification),
	}
}

// HandleJoin restricts a newly joined member, posts the verification
// prompt and starts the countdown.
func (s *CaptchaService) HandleJoin(ctx context.Context, chatID int64, target Target) error {
	defer s.locks.acquire(chatID, target.ID)()

	if err := s.gw.Restrict(ctx, chatID, target.ID, nil); err != nil {
		return err
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		return fmt.Errorf("load user record: %w", err)
	}
	joined := s.now()
	record.JoinedAt = &joined
	if err := s.users.Save(record); err != nil {
		return fmt.Errorf("persist join: %w", err)
	}

	markup := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{
				Text:         "✅ I'm not a robot!",
				CallbackData: fmt.Sprintf("%s%d", CaptchaCallbackPrefix, target.ID),
			},
		}},
	}
	text := fmt.Sprintf("Welcome, %s! Please confirm you are human within %d seconds.", target.LinkedName(), int(s.timeout.Seconds()))

	prompt, err := s.gw.SendMessage(ctx, chatID, text, markup)
	if err != nil {
		return err
	}

	key := userChatKey{ChatID: chatID, UserID: target.ID}
	p := &pendingVerification{target: target, prompt: prompt}

	s.mu.Lock()
	// A rejoin while a previous countdown is running replaces it
	var stale *gateway.MessageRef
	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
		ref := old.prompt
		stale = &ref
	}
	p.timer = time.AfterFunc(s.timeout, func() {
		defer crash.RecoverWithStack("captcha-timeout")
		s.expire(chatID, target)
	})
	s.pending[key] = p
	s.mu.Unlock()

	// The replaced countdown's prompt would otherwise keep a live
	// button in the chat
	if stale != nil {
		if err := s.gw.DeleteMessage(ctx, *stale); err != nil {
			logger.Debugf("could not delete superseded captcha prompt in chat %d: %v", chatID, err)
		}
	}

	logger.Infof("captcha started for user %d in chat %d", target.ID, chatID)
	return nil
}

// HandleVerification resolves a press of the verification button.
// Returns true when the press verified the pending user; false when
// the press came from another identity or the countdown already
// resolved, in which case nothing changes.
func (s *CaptchaService) HandleVerification(ctx context.Context, chatID, fromID, boundID int64) (bool, error) {
	if fromID != boundID {
		logger.Debugf("captcha button for user %d pressed by %d in chat %d, rejected", boundID, fromID, chatID)
		return false, nil
	}

	defer s.locks.acquire(chatID, boundID)()

	key := userChatKey{ChatID: chatID, UserID: boundID}

	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if !ok {
		// Countdown already resolved this join
		return false, nil
	}

	// Restore permissions before anything else: the expiry handler
	// trusts live membership state, so this write decides the race
	if err := s.gw.Unrestrict(ctx, chatID, boundID); err != nil {
		return false, err
	}

	if err := s.gw.DeleteMessage(ctx, p.prompt); err != nil {
		logger.Debugf("could not delete captcha prompt in chat %d: %v", chatID, err)
	}

	logger.Infof("user %d passed captcha in chat %d", boundID, chatID)
	return true, nil
}

// expire runs when the countdown elapses. It re-queries live
// membership instead of trusting the stale pending flag: a member who
// verified (or left) in the meantime is not banned.
func (s *CaptchaService) expire(chatID int64, target Target) {
	defer s.locks.acquire(chatID, target.ID)()

	key := userChatKey{ChatID: chatID, UserID: target.ID}

	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := s.gw.MemberStatus(ctx, chatID, target.ID)
	switch {
	case err != nil:
		logger.Warningf("captcha expiry: could not read member status for user %d in chat %d: %v", target.ID, chatID, err)
	case info.IsMuted():
		s.failVerification(ctx, chatID, target)
	case info.IsGone():
		// Already left or removed by other means, nothing to ban
		logger.Infof("user %d left chat %d before captcha expiry", target.ID, chatID)
	default:
		// Verified or otherwise unrestricted, nothing to do
		logger.Debugf("captcha expiry for user %d in chat %d: member already unrestricted", target.ID, chatID)
	}

	if err := s.gw.DeleteMessage(ctx, p.prompt); err != nil {
		logger.Debugf("could not delete captcha prompt in chat %d: %v", chatID, err)
	}
}

// failVerification bans an unverified member for the configured window
// and records the sanction.
func (s *CaptchaService) failVerification(ctx context.Context, chatID int64, target Target) {
	until := s.now().Add(s.banWindow)

	if err := s.gw.Ban(ctx, chatID, target.ID, &until); err != nil {
		logger.Errorf("captcha: failed to ban user %d in chat %d: %v", target.ID, chatID, err)
		return
	}

	record, err := s.users.GetOrCreate(target.ID, chatID)
	if err != nil {
		logger.Errorf("captcha: load user record for %d in chat %d: %v", target.ID, chatID, err)
		return
	}
	record.IsBanned = true
	record.BanExpiry = &until
	record.BanCount++

	label := FormatDuration(&until)
	sanction := &models.SanctionRecord{
		UserID:   target.ID,
		ChatID:   chatID,
		Kind:     models.SanctionBan,
		IssuedAt: s.now(),
		Name:     target.Name,
		Status:   "Banned (Captcha Failed)",
		Duration: label,
		Until:    &until,
	}
	if err := s.users.SaveWithSanction(record, sanction); err != nil {
		logger.Errorf("captcha: persist failed verification for user %d in chat %d: %v", target.ID, chatID, err)
		return
	}

	logger.Infof("user %d failed captcha in chat %d, banned %s", target.ID, chatID, label)
	s.audit.Broadcast(ctx, chatID, target, "Banned (Captcha Failed)", label, "", nil)
}

// PendingCount returns the number of unresolved verifications
func (s *CaptchaService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
