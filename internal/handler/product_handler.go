package handler

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail any    `json:"detail,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type stockDetail struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int64  `json:"available"`
	Requested   int64  `json:"requested"`
}

// usecaseのエラーをHTTPに変換
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var ise *usecase.InsufficientStockError
	if errors.As(err, &ise) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error: ise.Error(),
			Detail: stockDetail{
				ProductID:   ise.ProductID,
				ProductName: ise.ProductName,
				Available:   ise.Available,
				Requested:   ise.Requested,
			},
		})
	}

	switch {
	case errors.Is(err, usecase.ErrAuthFailure):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrInvalidQuantity),
		errors.Is(err, usecase.ErrInvalidArgument),
		errors.Is(err, usecase.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrConflict),
		errors.Is(err, usecase.ErrReferencedByOrder),
		errors.Is(err, usecase.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrStoreUnavailable):
		//中身（DBのエラー）は返さない
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: usecase.ErrStoreUnavailable.Error()})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// 顧客の商品一覧
type ProductHandler struct {
	sessions *SessionTable
}

// DI
func NewProductHandler(sessions *SessionTable) *ProductHandler {
	return &ProductHandler{sessions: sessions}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	g := customerGroup(e, "/products", issuer, h.sessions)
	g.GET("", h.list)
}

func (h *ProductHandler) list(c echo.Context) error {
	s, ok := customerFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	products, err := s.BrowseProducts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}
