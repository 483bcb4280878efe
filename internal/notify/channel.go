package notify

import (
	"context"
	"errors"
)

// 切断済みのクライアントに送ろうとした
var ErrChannelClosed = errors.New("notification channel closed")

// Channelはログイン中クライアントへの通知の届け先
// Deliverがエラーを返したら、その登録は捨てられる
type Channel interface {
	Deliver(ctx context.Context, message string) error
}

// 関数をChannelとして使う
type ChannelFunc func(ctx context.Context, message string) error

func (f ChannelFunc) Deliver(ctx context.Context, message string) error {
	return f(ctx, message)
}
