package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tg-warden/internal/config"
	"tg-warden/internal/gateway"
	"tg-warden/internal/models"
	"tg-warden/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.UserRecord{}, &models.SanctionRecord{}, &models.ChatConfig{}))
	return db
}

func testPolicy() *DurationPolicy {
	return NewDurationPolicy(config.ModerationConfig{
		MaxWarns: 5,
		MuteSteps: []time.Duration{
			time.Hour,
			2*time.Hour + 30*time.Minute,
			4 * time.Hour,
			24 * time.Hour,
			72 * time.Hour,
		},
		GrowthFactor:    1.2,
		MaxMuteDuration: 365 * 24 * time.Hour,
	})
}

type sentMessage struct {
	ChatID int64
	Text   string
	Markup *telego.InlineKeyboardMarkup
	Ref    gateway.MessageRef
}

// fakeGateway is a stateful in-memory ChatGateway: restrict/ban calls
// update the member state later reads observe, mirroring the platform.
type fakeGateway struct {
	mu      sync.Mutex
	members map[userChatKey]gateway.MemberInfo

	restrictCalls   int
	unrestrictCalls int
	banCalls        int
	unbanCalls      int

	sent      []sentMessage
	deleted   []gateway.MessageRef
	forwarded []gateway.MessageRef

	failRestrict error
	failBan      error

	nextMsgID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{members: make(map[userChatKey]gateway.MemberInfo)}
}

func (f *fakeGateway) setMember(chatID, userID int64, info gateway.MemberInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[userChatKey{ChatID: chatID, UserID: userID}] = info
}

func (f *fakeGateway) MemberStatus(ctx context.Context, chatID, userID int64) (gateway.MemberInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.members[userChatKey{ChatID: chatID, UserID: userID}]; ok {
		return info, nil
	}
	return gateway.MemberInfo{Role: gateway.RoleMember, CanSend: true}, nil
}

func (f *fakeGateway) Restrict(ctx context.Context, chatID, userID int64, until *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRestrict != nil {
		return f.failRestrict
	}
	f.restrictCalls++
	f.members[userChatKey{ChatID: chatID, UserID: userID}] = gateway.MemberInfo{Role: gateway.RoleRestricted, CanSend: false}
	return nil
}

func (f *fakeGateway) Unrestrict(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unrestrictCalls++
	f.members[userChatKey{ChatID: chatID, UserID: userID}] = gateway.MemberInfo{Role: gateway.RoleMember, CanSend: true}
	return nil
}

func (f *fakeGateway) Ban(ctx context.Context, chatID, userID int64, until *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBan != nil {
		return f.failBan
	}
	f.banCalls++
	f.members[userChatKey{ChatID: chatID, UserID: userID}] = gateway.MemberInfo{Role: gateway.RoleKicked, CanSend: false}
	return nil
}

func (f *fakeGateway) Unban(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbanCalls++
	f.members[userChatKey{ChatID: chatID, UserID: userID}] = gateway.MemberInfo{Role: gateway.RoleLeft, CanSend: false}
	return nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	ref := gateway.MessageRef{ChatID: chatID, MessageID: f.nextMsgID}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Markup: markup, Ref: ref})
	return ref, nil
}

func (f *fakeGateway) DeleteMessage(ctx context.Context, ref gateway.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeGateway) ForwardMessage(ctx context.Context, toChatID int64, from gateway.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded = append(f.forwarded, from)
	return nil
}

func (f *fakeGateway) snapshotCounts() (restrict, unrestrict, ban, unban int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restrictCalls, f.unrestrictCalls, f.banCalls, f.unbanCalls
}

// newTestServices builds the engine over an in-memory database and a
// fake gateway
func newTestServices(t *testing.T) (*RestrictionService, *fakeGateway, *storage.UserRepository, *storage.SanctionRepository) {
	t.Helper()

	db := newTestDB(t)
	users := storage.NewUserRepository(db)
	sanctions := storage.NewSanctionRepository(db)
	configs := storage.NewChatConfigRepository(db)

	gw := newFakeGateway()
	audit := NewAuditBroadcaster(gw, configs)
	svc := NewRestrictionService(gw, users, sanctions, audit, testPolicy(), 5, NewKeyedLocks())

	return svc, gw, users, sanctions
}

func countSanctions(t *testing.T, sanctions *storage.SanctionRepository, chatID int64, kind models.SanctionKind) int64 {
	t.Helper()
	count, err := sanctions.Count(chatID, kind, false, time.Now())
	require.NoError(t, err)
	return count
}
