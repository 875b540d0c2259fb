package service

import "sync"

type userChatKey struct {
	ChatID int64
	UserID int64
}

// KeyedLocks serializes ledger mutations per (chat, user) pair. The
// update pattern is read-modify-write, so two in-flight operations for
// the same pair must not interleave. One shared instance covers every
// mutation path, command-driven and captcha-driven alike.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[userChatKey]*sync.Mutex
}

// NewKeyedLocks creates an empty lock registry
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[userChatKey]*sync.Mutex)}
}

// acquire locks the pair's mutex and returns the release function.
// Entries are kept for the process lifetime; the map is bounded by the
// number of distinct pairs ever sanctioned.
func (l *KeyedLocks) acquire(chatID, userID int64) func() {
	key := userChatKey{ChatID: chatID, UserID: userID}

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
