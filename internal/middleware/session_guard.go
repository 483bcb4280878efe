package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// サーバー側にセッションが残っているか
type SessionLookup interface {
	Alive(sessionID string) bool
}

// 署名が正しくてもログアウト済み（or 再起動で消えた）セッションは401
func SessionGuard(sessions SessionLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, ok := c.Get(CtxSessionIDKey).(string)
			if !ok || sid == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if !sessions.Alive(sid) {
				return c.JSON(http.StatusUnauthorized, errorJSON("session expired"))
			}
			return next(c)
		}
	}
}
