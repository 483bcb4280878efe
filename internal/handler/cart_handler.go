package handler

import (
	"net/http"

	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP（カートはセッションのメモリ上だけ）
type CartHandler struct {
	sessions *SessionTable
}

// DI
func NewCartHandler(sessions *SessionTable) *CartHandler {
	return &CartHandler{sessions: sessions}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// /cart, /cart/{productId} を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	g := customerGroup(e, "/cart", issuer, h.sessions)

	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.DELETE("", h.clearCart)
	g.DELETE("/:productId", h.removeItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	view, err := s.ViewCart(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := s.AddToCart(c.Request().Context(), req.ProductID, req.Quantity); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.CartItems())
}

func (h *CartHandler) removeItem(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	//無くてもエラーにしない
	s.RemoveFromCart(productID)
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	s.ClearCart()
	return c.NoContent(http.StatusNoContent)
}
