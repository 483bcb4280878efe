package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/platform/logger"
	"storefront/internal/usecase"
	"storefront/internal/validator"
)

type AuthHandler struct {
	factory  *usecase.SessionFactory
	sessions *SessionTable
	hub      *ChannelHub
	issuer   *middleware.TokenIssuer
	log      *logger.Logger
}

// DIコンストラクタ
func NewAuthHandler(
	factory *usecase.SessionFactory,
	sessions *SessionTable,
	hub *ChannelHub,
	issuer *middleware.TokenIssuer,
	log *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		factory:  factory,
		sessions: sessions,
		hub:      hub,
		issuer:   issuer,
		log:      log.With("component", "AuthHandler"),
	}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

// /auth/login のリクエストボディ。
// channel_idは/notifications/streamで受け取ったもの（任意）
type loginRequest struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
	ChannelID  string `json:"channel_id"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", h.register)
	e.POST("/auth/login", h.login)
	e.POST("/auth/admin/login", h.adminLogin)

	customerGroup(e, "/auth/logout", h.issuer, h.sessions).POST("", h.logout)
	adminGroup(e, h.issuer, h.sessions).POST("/logout", h.adminLogout)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := validator.ValidateRegister(req.Username, req.Credential, req.Name); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	err := h.factory.RegisterCustomer(c.Request().Context(), usecase.RegisterCustomerInput{
		Username:   req.Username,
		Credential: req.Credential,
		Name:       req.Name,
		Address:    req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, SuccessResponse{Message: "registered"})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := validator.ValidateLogin(req.Username, req.Credential); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	//通知チャネル（指定されたときだけ）
	var ch notify.Channel
	channelID := strings.TrimSpace(req.ChannelID)
	if channelID != "" {
		if err := validator.ValidateChannelID(channelID); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		stream, ok := h.hub.Unclaimed(channelID)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown channel_id"})
		}
		ch = stream
	}

	s, err := h.factory.Login(c.Request().Context(), req.Username, req.Credential, ch)
	if err != nil {
		return writeError(c, err)
	}
	if channelID != "" {
		h.hub.Claim(channelID, s.Username())
	}

	sid := uuid.NewString()
	token, exp, err := h.issuer.Issue(sid, s.Username(), middleware.RoleCustomer)
	if err != nil {
		h.log.Error("issue token failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	h.sessions.AddCustomer(sid, s, exp)

	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: exp,
		Username:  s.Username(),
		Role:      middleware.RoleCustomer,
	})
}

func (h *AuthHandler) adminLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := validator.ValidateLogin(req.Username, req.Credential); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	a, err := h.factory.AdminLogin(c.Request().Context(), req.Username, req.Credential)
	if err != nil {
		return writeError(c, err)
	}

	sid := uuid.NewString()
	token, exp, err := h.issuer.Issue(sid, a.Username(), middleware.RoleAdmin)
	if err != nil {
		h.log.Error("issue token failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	h.sessions.AddAdmin(sid, a, exp)

	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: exp,
		Username:  a.Username(),
		Role:      middleware.RoleAdmin,
	})
}

// 通知の登録を外してセッションを捨てる
func (h *AuthHandler) logout(c echo.Context) error {
	sid, _ := sessionIDFromContext(c)
	s, ok := h.sessions.Customer(sid)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	s.Logout()
	h.sessions.Remove(sid)
	h.hub.CloseOwned(s.Username())
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) adminLogout(c echo.Context) error {
	sid, _ := sessionIDFromContext(c)
	a, ok := h.sessions.Admin(sid)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	a.Logout()
	h.sessions.Remove(sid)
	return c.NoContent(http.StatusNoContent)
}
