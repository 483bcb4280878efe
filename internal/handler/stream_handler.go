package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"storefront/internal/notify"
	"storefront/internal/platform/logger"
)

const heartbeatInterval = 15 * time.Second

// 切断時の後始末用
type channelDetacher interface {
	Detach(username string, ch notify.Channel) bool
}

// GET /notifications/stream（SSE）
// 最初のchannelイベントのIDをログイン時に渡すと、この接続に通知が届く
type StreamHandler struct {
	hub       *ChannelHub
	registry  channelDetacher
	heartbeat time.Duration
	log       *logger.Logger
}

func NewStreamHandler(hub *ChannelHub, registry channelDetacher, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		hub:       hub,
		registry:  registry,
		heartbeat: heartbeatInterval,
		log:       log.With("component", "StreamHandler"),
	}
}

type channelEvent struct {
	ChannelID string `json:"channel_id"`
}

type notificationEvent struct {
	Message string `json:"message"`
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/notifications/stream", h.stream)
}

func (h *StreamHandler) stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Open()
	defer func() {
		ch.Close()
		if owner := h.hub.Release(ch.ID); owner != "" {
			h.registry.Detach(owner, ch)
		}
		h.log.Debug("stream closed", "channel_id", ch.ID)
	}()

	if err := writeEvent(w, "channel", channelEvent{ChannelID: ch.ID}); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case msg := <-ch.Outbound():
			if err := writeEvent(w, "notification", notificationEvent{Message: msg}); err != nil {
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw); err != nil {
		return err
	}
	w.Flush()
	return nil
}
