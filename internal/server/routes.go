package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/handler"
)

// 全ルート登録
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.NewAuthHandler(d.Factory, d.Sessions, d.Hub, d.Issuer, d.Logger).RegisterRoutes(e)
	handler.NewStreamHandler(d.Hub, d.Registry, d.Logger).RegisterRoutes(e)

	//customer
	handler.NewProductHandler(d.Sessions).RegisterRoutes(e, d.Issuer)
	handler.NewCartHandler(d.Sessions).RegisterRoutes(e, d.Issuer)
	handler.NewOrderHandler(d.Sessions).RegisterRoutes(e, d.Issuer)

	//admin
	handler.NewAdminProductHandler(d.Sessions).RegisterRoutes(e, d.Issuer)
	handler.NewAdminCategoryHandler(d.Sessions).RegisterRoutes(e, d.Issuer)
	handler.NewAdminOrderHandler(d.Sessions).RegisterRoutes(e, d.Issuer)
	handler.NewAdminAuditHandler(d.Sessions).RegisterRoutes(e, d.Issuer)
	handler.NewAdminUserHandler(d.Factory, d.Sessions, d.Hub).RegisterRoutes(e, d.Issuer)
}
