package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/middleware"
)

type AdminCategoryHandler struct {
	sessions *SessionTable
}

func NewAdminCategoryHandler(sessions *SessionTable) *AdminCategoryHandler {
	return &AdminCategoryHandler{sessions: sessions}
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *AdminCategoryHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	admin := adminGroup(e, issuer, h.sessions)

	admin.GET("/categories", h.list)
	admin.POST("/categories", h.create)
	admin.PUT("/categories/:id", h.update)
	admin.DELETE("/categories/:id", h.delete)
}

func (h *AdminCategoryHandler) list(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	cs, err := a.GetAllCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *AdminCategoryHandler) create(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	cat, err := a.AddCategory(c.Request().Context(), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminCategoryHandler) update(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	cat, err := a.UpdateCategory(c.Request().Context(), id, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

// 商品ごと削除（注文に使われた商品があれば409）
func (h *AdminCategoryHandler) delete(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := a.DeleteCategory(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
