package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"
)

type AdminAuditHandler struct {
	sessions *SessionTable
}

func NewAdminAuditHandler(sessions *SessionTable) *AdminAuditHandler {
	return &AdminAuditHandler{sessions: sessions}
}

func (h *AdminAuditHandler) RegisterRoutes(e *echo.Echo, issuer *middleware.TokenIssuer) {
	adminGroup(e, issuer, h.sessions).GET("/audit-logs", h.list)
}

// ?actor=&action=&resource_type=&resource_id=&limit=&offset=
func (h *AdminAuditHandler) list(c echo.Context) error {
	a, ok := adminFromContext(c, h.sessions)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	filter, ok := auditFilterFromQuery(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}

	logs, err := a.AuditTrail(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func auditFilterFromQuery(c echo.Context) (repo.AuditLogFilter, bool) {
	f := repo.AuditLogFilter{Actor: strings.TrimSpace(c.QueryParam("actor"))}

	if v := strings.TrimSpace(c.QueryParam("action")); v != "" {
		action := model.AuditAction(strings.ToUpper(v))
		f.Action = &action
	}
	if v := strings.TrimSpace(c.QueryParam("resource_type")); v != "" {
		rt := model.AuditResourceType(strings.ToLower(v))
		f.ResourceType = &rt
	}
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return repo.AuditLogFilter{}, false
		}
		f.ResourceID = &id
	}
	var err error
	if v := c.QueryParam("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return repo.AuditLogFilter{}, false
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return repo.AuditLogFilter{}, false
		}
	}
	return f, true
}
