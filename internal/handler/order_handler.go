package handler

import (
	"net/http"

	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	sessions *SessionTable
}

func NewOrderHandler(sessions *SessionTable) *OrderHandler {
	return &OrderHandler{sessions: sessions}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	g := customerGroup(e, "/orders", issuer, h.sessions)

	g.POST("", h.placeOrder)
	g.GET("", h.listMyOrders)
}

// カートの中身で注文を確定
func (h *OrderHandler) placeOrder(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	order, err := s.PlaceOrder(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) listMyOrders(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orders, err := s.GetOrderHistory(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}
