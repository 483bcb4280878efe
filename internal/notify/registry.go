package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/platform/logger"
)

var errChannelPanic = errors.New("notification channel panic")

// 登録ごとに別ポインタ（古い失敗で新しいログインを消さないため）
type entry struct {
	ch Channel
}

type target struct {
	username string
	e        *entry
}

// Registryはログイン中ユーザー名と通知チャネルの対応表
// 1ユーザー1チャネル、後からのログインが勝つ
type Registry struct {
	mu      sync.RWMutex
	log     *logger.Logger
	entries map[string]*entry
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		log:     log.With("component", "NotificationRegistry"),
		entries: make(map[string]*entry),
	}
}

// 既存があれば置き換える
func (r *Registry) Register(username string, ch Channel) {
	if ch == nil {
		r.log.Warn("refusing to register nil channel", "username", username)
		return
	}
	r.mu.Lock()
	_, replaced := r.entries[username]
	r.entries[username] = &entry{ch: ch}
	r.mu.Unlock()

	r.log.Debug("channel registered", "username", username, "replaced", replaced)
}

// 無ければ何もしない
func (r *Registry) Unregister(username string) {
	r.mu.Lock()
	delete(r.entries, username)
	r.mu.Unlock()
}

// chがまだ登録中のときだけ外す（切断時の後始末用）
// chはポインタなど比較できる型であること
func (r *Registry) Detach(username string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[username]
	if !ok || e.ch != ch {
		return false
	}
	delete(r.entries, username)
	return true
}

// ベストエフォート。失敗したら登録を外すだけでエラーは返さない
func (r *Registry) NotifyOne(ctx context.Context, username string, message string) {
	r.mu.RLock()
	e, ok := r.entries[username]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.deliver(ctx, target{username: username, e: e}, message)
}

// 登録中の全員へ（スナップショットを取ってからロック外で配送）
func (r *Registry) NotifyAll(ctx context.Context, message string) {
	r.mu.RLock()
	targets := make([]target, 0, len(r.entries))
	for name, e := range r.entries {
		targets = append(targets, target{username: name, e: e})
	}
	r.mu.RUnlock()

	for _, t := range targets {
		r.deliver(ctx, t, message)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) IsRegistered(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[username]
	return ok
}

func (r *Registry) deliver(ctx context.Context, t target, message string) {
	err := r.safeDeliver(ctx, t, message)
	if err == nil {
		return
	}
	// 呼び出し側のctxが切れただけならチャネルは生きている
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.log.Debug("notification skipped; caller context done", "username", t.username, "error", err)
		return
	}
	evicted := r.evict(t)
	r.log.Warn("notification delivery failed", "username", t.username, "evicted", evicted, "error", err)
}

// チャネル側のpanicは配送失敗として扱う
func (r *Registry) safeDeliver(ctx context.Context, t target, message string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: channel panicked: %v", errChannelPanic, p)
		}
	}()
	return t.e.ch.Deliver(ctx, message)
}

// 失敗したエントリがまだ同じものなら消す
func (r *Registry) evict(t target) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[t.username]
	if !ok || cur != t.e {
		return false
	}
	delete(r.entries, t.username)
	return true
}
