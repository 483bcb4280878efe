package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/platform/logger"
	"storefront/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type Deps struct {
	Factory  *usecase.SessionFactory
	Registry *notify.Registry
	Issuer   *middleware.TokenIssuer
	Sessions *handler.SessionTable
	Hub      *handler.ChannelHub
	Logger   *logger.Logger
}

func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	log := d.Logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "error", v.Error)
				return nil
			}
			log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	RegisterRoutes(e, d)
	// SSEはリクエストctxが切れないので、ここで閉じる
	e.Server.RegisterOnShutdown(d.Hub.CloseAll)
	return e
}

// ctxが終わるまで待ち受けて、終わったらgraceful shutdown
func Start(ctx context.Context, e *echo.Echo, addr string, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("server shutting down")
	return e.Shutdown(shutdownCtx)
}
