package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/platform/logger"
)

const DefaultStreamBuffer = 16

// StreamChannelはSSE接続1本分の通知チャネル
// バッファが一杯なら捨てる（登録は残す）、切断後はErrChannelClosed
type StreamChannel struct {
	ID string

	mu       sync.Mutex
	closed   bool
	outbound chan string
	done     chan struct{}
	log      *logger.Logger
}

func NewStreamChannel(log *logger.Logger, buffer int) *StreamChannel {
	if buffer < 1 {
		buffer = DefaultStreamBuffer
	}
	id := uuid.NewString()
	return &StreamChannel{
		ID:       id,
		outbound: make(chan string, buffer),
		done:     make(chan struct{}),
		log:      log.With("component", "StreamChannel", "channel_id", id),
	}
}

func (s *StreamChannel) Deliver(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrChannelClosed
	}
	select {
	case s.outbound <- message:
	default:
		s.log.Warn("dropping notification; outbound buffer full")
	}
	return nil
}

// 送信待ちのメッセージ
func (s *StreamChannel) Outbound() <-chan string {
	return s.outbound
}

// Close後に閉じる
func (s *StreamChannel) Done() <-chan struct{} {
	return s.done
}

// 何度呼んでもよい
func (s *StreamChannel) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *StreamChannel) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
