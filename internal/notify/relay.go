package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/platform/logger"
)

// redisに流す中身。Usernameが空なら全員宛て
type envelope struct {
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

// Relayは複数インスタンス間で通知を配るためのredis pub/sub
// 各インスタンスのフォワーダーが受け取ってローカルのRegistryへ渡す
type Relay struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	local   *Registry
}

// 接続確認（ping）まで行う
func NewRelay(ctx context.Context, log *logger.Logger, addr string, channel string, local *Registry) (*Relay, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRelayWithClient(log, rdb, channel, local), nil
}

func NewRelayWithClient(log *logger.Logger, rdb *goredis.Client, channel string, local *Registry) *Relay {
	if strings.TrimSpace(channel) == "" {
		channel = "storefront:notify"
	}
	return &Relay{
		log:     log.With("component", "NotificationRelay", "channel", channel),
		rdb:     rdb,
		channel: channel,
		local:   local,
	}
}

// publishに失敗したらローカルだけに配る
func (r *Relay) NotifyOne(ctx context.Context, username string, message string) {
	if err := r.publish(ctx, envelope{Username: username, Message: message}); err != nil {
		r.log.Warn("relay publish failed; delivering locally", "username", username, "error", err)
		r.local.NotifyOne(ctx, username, message)
	}
}

func (r *Relay) NotifyAll(ctx context.Context, message string) {
	if err := r.publish(ctx, envelope{Message: message}); err != nil {
		r.log.Warn("relay publish failed; delivering locally", "error", err)
		r.local.NotifyAll(ctx, message)
	}
}

func (r *Relay) publish(ctx context.Context, env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, raw).Err()
}

// 購読を始めてからgoroutineで転送する。ctxが終わると止まる
func (r *Relay) StartForwarder(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)

	// 購読が確立したことを確認
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				r.dispatch(ctx, m.Payload)
			}
		}
	}()
	return nil
}

func (r *Relay) dispatch(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn("bad relay payload", "error", err)
		return
	}
	if env.Username == "" {
		r.local.NotifyAll(ctx, env.Message)
		return
	}
	r.local.NotifyOne(ctx, env.Username, env.Message)
}

func (r *Relay) Close() error {
	return r.rdb.Close()
}
