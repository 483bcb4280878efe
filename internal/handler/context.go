package handler

import (
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// JWT必須 + セッション生存 + CUSTOMER限定
func customerGroup(e *echo.Echo, prefix string, issuer *middleware.TokenIssuer, sessions *SessionTable) *echo.Group {
	return e.Group(prefix,
		middleware.AuthJWT(issuer),
		middleware.SessionGuard(sessions),
		middleware.CustomerRoleGuard(),
	)
}

// JWT必須 + セッション生存 + ADMIN限定
func adminGroup(e *echo.Echo, issuer *middleware.TokenIssuer, sessions *SessionTable) *echo.Group {
	return e.Group("/admin",
		middleware.AuthJWT(issuer),
		middleware.SessionGuard(sessions),
		middleware.AdminRoleGuard(),
	)
}

func sessionIDFromContext(c echo.Context) (string, bool) {
	sid, ok := c.Get(middleware.CtxSessionIDKey).(string)
	return sid, ok && sid != ""
}

func customerFromContext(c echo.Context, sessions *SessionTable) (*usecase.CustomerSession, bool) {
	sid, ok := sessionIDFromContext(c)
	if !ok {
		return nil, false
	}
	return sessions.Customer(sid)
}

func adminFromContext(c echo.Context, sessions *SessionTable) (*usecase.AdminContext, bool) {
	sid, ok := sessionIDFromContext(c)
	if !ok {
		return nil, false
	}
	return sessions.Admin(sid)
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
