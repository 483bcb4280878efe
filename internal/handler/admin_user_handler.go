package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
)

// 顧客の強制ログアウト
type AdminUserHandler struct {
	factory  *usecase.SessionFactory
	sessions *SessionTable
	hub      *ChannelHub
}

func NewAdminUserHandler(factory *usecase.SessionFactory, sessions *SessionTable, hub *ChannelHub) *AdminUserHandler {
	return &AdminUserHandler{factory: factory, sessions: sessions, hub: hub}
}

type forceLogoutResponse struct {
	Username string `json:"username"`
	Sessions int    `json:"sessions"`
	Streams  int    `json:"streams"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	admin := adminGroup(e, issuer, h.sessions)
	admin.POST("/customers/:username/force-logout", h.forceLogout)
}

// 通知の登録を外し、その顧客のトークンとSSE接続を全部無効にする
func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid username"})
	}

	h.factory.Logout(username)
	n := h.sessions.RemoveCustomer(username)
	streams := h.hub.CloseOwned(username)
	return c.JSON(http.StatusOK, forceLogoutResponse{Username: username, Sessions: n, Streams: streams})
}
