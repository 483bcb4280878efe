package handler

import (
	"sync"

	"storefront/internal/notify"
	"storefront/internal/platform/logger"
)

type hubEntry struct {
	ch    *notify.StreamChannel
	owner string // ログインで使われたら入る
}

// ChannelHubは開いているSSE接続の一覧
// 接続直後は持ち主なし、ログイン時にchannel_idで持ち主が決まる
type ChannelHub struct {
	mu      sync.Mutex
	entries map[string]*hubEntry
	buffer  int
	log     *logger.Logger
}

func NewChannelHub(log *logger.Logger, buffer int) *ChannelHub {
	return &ChannelHub{
		entries: make(map[string]*hubEntry),
		buffer:  buffer,
		log:     log.With("component", "ChannelHub"),
	}
}

func (h *ChannelHub) Open() *notify.StreamChannel {
	ch := notify.NewStreamChannel(h.log, h.buffer)
	h.mu.Lock()
	h.entries[ch.ID] = &hubEntry{ch: ch}
	h.mu.Unlock()
	return ch
}

// まだ誰も使っていない接続だけ返す
func (h *ChannelHub) Unclaimed(id string) (*notify.StreamChannel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[id]
	if !ok || e.owner != "" {
		return nil, false
	}
	return e.ch, true
}

func (h *ChannelHub) Claim(id string, owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.entries[id]; ok {
		e.owner = owner
	}
}

// 切断時。持ち主（無ければ空）を返す
func (h *ChannelHub) Release(id string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[id]
	if !ok {
		return ""
	}
	delete(h.entries, id)
	return e.owner
}

func (h *ChannelHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// ログアウト時。その顧客の接続を閉じる
func (h *ChannelHub) CloseOwned(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.entries {
		if e.owner == owner {
			e.ch.Close()
			n++
		}
	}
	return n
}

// シャットダウン時
func (h *ChannelHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		e.ch.Close()
	}
}
