package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
)

type AdminOrderHandler struct {
	sessions *SessionTable
}

func NewAdminOrderHandler(sessions *SessionTable) *AdminOrderHandler {
	return &AdminOrderHandler{sessions: sessions}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	admin := adminGroup(e, issuer, h.sessions)

	admin.GET("/orders", h.list)
	admin.PATCH("/orders/:id/status", h.updateStatus)
	admin.GET("/statistics", h.statistics)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	orders, err := a.ViewAllOrders(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// 更新後に持ち主へ通知（通知の成否はレスポンスに影響しない）
func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	order, err := a.UpdateOrderStatus(c.Request().Context(), id, model.OrderStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *AdminOrderHandler) statistics(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	st, err := a.Statistics(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
