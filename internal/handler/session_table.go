package handler

import (
	"sync"
	"time"

	"storefront/internal/usecase"
)

type sessionEntry struct {
	customer  *usecase.CustomerSession
	admin     *usecase.AdminContext
	username  string
	expiresAt time.Time
}

// 期限切れをまとめて掃除する間隔
const sweepInterval = time.Minute

// SessionTableはトークンのsidと生きているセッションの対応
// 期限切れは参照時と追加時（sweepIntervalごと）に消す
type SessionTable struct {
	mu        sync.RWMutex
	entries   map[string]sessionEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewSessionTable() *SessionTable {
	return &SessionTable{
		entries: make(map[string]sessionEntry),
		now:     time.Now,
	}
}

func (t *SessionTable) AddCustomer(sid string, s *usecase.CustomerSession, expiresAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	t.entries[sid] = sessionEntry{customer: s, username: s.Username(), expiresAt: expiresAt}
}

func (t *SessionTable) AddAdmin(sid string, a *usecase.AdminContext, expiresAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	t.entries[sid] = sessionEntry{admin: a, username: a.Username(), expiresAt: expiresAt}
}

func (t *SessionTable) Customer(sid string) (*usecase.CustomerSession, bool) {
	e, ok := t.get(sid)
	if !ok || e.customer == nil {
		return nil, false
	}
	return e.customer, true
}

func (t *SessionTable) Admin(sid string) (*usecase.AdminContext, bool) {
	e, ok := t.get(sid)
	if !ok || e.admin == nil {
		return nil, false
	}
	return e.admin, true
}

func (t *SessionTable) Alive(sid string) bool {
	_, ok := t.get(sid)
	return ok
}

func (t *SessionTable) Remove(sid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, sid)
}

// 顧客のセッションを全部消して件数を返す
func (t *SessionTable) RemoveCustomer(username string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for sid, e := range t.entries {
		if e.customer != nil && e.username == username {
			delete(t.entries, sid)
			n++
		}
	}
	return n
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *SessionTable) get(sid string) (sessionEntry, bool) {
	t.mu.RLock()
	e, ok := t.entries[sid]
	t.mu.RUnlock()
	if !ok {
		return sessionEntry{}, false
	}
	if !t.now().Before(e.expiresAt) {
		t.Remove(sid)
		return sessionEntry{}, false
	}
	return e, true
}

// 放置されたセッション（カートごと）を捨てる。mu.Lock中に呼ぶ
func (t *SessionTable) sweepLocked() {
	now := t.now()
	if now.Sub(t.lastSweep) < sweepInterval {
		return
	}
	t.lastSweep = now
	for sid, e := range t.entries {
		if !now.Before(e.expiresAt) {
			delete(t.entries, sid)
		}
	}
}
