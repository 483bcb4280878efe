package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/platform/logger"
	"storefront/internal/usecase"
)

type testServer struct {
	*httptest.Server
	hub *handler.ChannelHub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gdb, err := db.Connect(config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	log := logger.NewNop()
	registry := notify.NewRegistry(log)
	factory := usecase.NewSessionFactory(usecase.SessionFactoryDeps{
		Tx:              infraRepo.NewTxManagerGorm(gdb),
		Repos:           infraRepo.NewRepos(gdb),
		Registry:        registry,
		Credentials:     usecase.PlainCredentials{},
		AdminUsername:   "admin",
		AdminCredential: "admin-pw",
		Logger:          log,
	})
	hub := handler.NewChannelHub(log, 8)

	e := New(Deps{
		Factory:  factory,
		Registry: registry,
		Issuer:   middleware.NewTokenIssuer("test-secret", time.Hour),
		Sessions: handler.NewSessionTable(),
		Hub:      hub,
		Logger:   log,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testServer{Server: srv, hub: hub}
}

// JSONを送ってステータスと本文を返す
func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type sseEvent struct {
	name string
	data string
}

type sseStream struct {
	events chan sseEvent
	body   io.Closer
}

// 接続してchannelイベントのIDを返す
func (s *testServer) openStream(t *testing.T) (*sseStream, string) {
	t.Helper()
	res, err := s.Client().Get(s.URL + "/notifications/stream")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")

	st := &sseStream{events: make(chan sseEvent, 16), body: res.Body}
	t.Cleanup(func() { _ = st.body.Close() })
	go func() {
		defer close(st.events)
		sc := bufio.NewScanner(res.Body)
		var ev sseEvent
		for sc.Scan() {
			line := sc.Text()
			switch {
			case line == "":
				if ev.name != "" {
					st.events <- ev
				}
				ev = sseEvent{}
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()

	first := st.next(t)
	require.Equal(t, "channel", first.name)
	id := decode[struct {
		ChannelID string `json:"channel_id"`
	}](t, []byte(first.data)).ChannelID
	require.NotEmpty(t, id)
	return st, id
}

func (st *sseStream) next(t *testing.T) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-st.events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func (st *sseStream) nextMessage(t *testing.T) string {
	t.Helper()
	ev := st.next(t)
	require.Equal(t, "notification", ev.name)
	return decode[struct {
		Message string `json:"message"`
	}](t, []byte(ev.data)).Message
}

// ストリームが閉じられるのを待つ
func (st *sseStream) waitClosed(t *testing.T) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-st.events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream was not closed")
		}
	}
}

type loginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *testServer) registerAndLogin(t *testing.T, username, channelID string) string {
	t.Helper()
	code, raw := s.call(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username, "credential": "pw-" + username, "name": username, "address": "1 Main St",
	})
	require.Equal(t, http.StatusCreated, code, string(raw))

	code, raw = s.call(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username, "credential": "pw-" + username, "channel_id": channelID,
	})
	require.Equal(t, http.StatusOK, code, string(raw))
	res := decode[loginResult](t, raw)
	assert.Equal(t, middleware.RoleCustomer, res.Role)
	return res.Token
}

func (s *testServer) adminLogin(t *testing.T) string {
	t.Helper()
	code, raw := s.call(t, http.MethodPost, "/auth/admin/login", "", map[string]string{
		"username": "admin", "credential": "admin-pw",
	})
	require.Equal(t, http.StatusOK, code, string(raw))
	return decode[loginResult](t, raw).Token
}

func (s *testServer) seedProduct(t *testing.T, adminToken string, stock int64) (model.Category, model.Product) {
	t.Helper()
	code, raw := s.call(t, http.MethodPost, "/admin/categories", adminToken, map[string]string{"name": "Shoes"})
	require.Equal(t, http.StatusCreated, code, string(raw))
	cat := decode[model.Category](t, raw)

	code, raw = s.call(t, http.MethodPost, "/admin/products", adminToken, map[string]any{
		"name": "Runner", "price": "49.90", "stock_quantity": stock, "category_id": cat.ID, "brand": "Acme",
	})
	require.Equal(t, http.StatusCreated, code, string(raw))
	return cat, decode[model.Product](t, raw)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.call(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckoutFlowWithNotifications(t *testing.T) {
	s := newTestServer(t)
	stream, channelID := s.openStream(t)

	token := s.registerAndLogin(t, "alice", channelID)
	admin := s.adminLogin(t)

	_, product := s.seedProduct(t, admin, 3)
	assert.Equal(t, "New product available: Runner", stream.nextMessage(t))

	code, raw := s.call(t, http.MethodGet, "/products", token, nil)
	require.Equal(t, http.StatusOK, code)
	products := decode[[]model.Product](t, raw)
	require.Len(t, products, 1)
	assert.Equal(t, "49.90", products[0].Price.StringFixed(2))

	code, raw = s.call(t, http.MethodPost, "/cart", token, map[string]int64{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, code, string(raw))

	code, raw = s.call(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[usecase.CartView](t, raw)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "99.80", view.Total.StringFixed(2))

	code, raw = s.call(t, http.MethodPost, "/orders", token, nil)
	require.Equal(t, http.StatusCreated, code, string(raw))
	order := decode[model.Order](t, raw)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "99.80", order.TotalAmount.StringFixed(2))

	// 注文後はカートが空
	code, raw = s.call(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[usecase.CartView](t, raw).Lines)

	code, raw = s.call(t, http.MethodPatch, fmt.Sprintf("/admin/orders/%d/status", order.ID), admin, map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, code, string(raw))
	assert.Equal(t, model.OrderStatusShipped, decode[model.Order](t, raw).Status)
	assert.Equal(t, fmt.Sprintf("Your order #%d is now SHIPPED", order.ID), stream.nextMessage(t))

	code, raw = s.call(t, http.MethodGet, "/orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[[]model.Order](t, raw)
	require.Len(t, history, 1)
	assert.Equal(t, model.OrderStatusShipped, history[0].Status)

	code, raw = s.call(t, http.MethodGet, "/admin/statistics", admin, nil)
	require.Equal(t, http.StatusOK, code, string(raw))
}

func TestInsufficientStockReturnsDetail(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "bob", "")
	admin := s.adminLogin(t)
	_, product := s.seedProduct(t, admin, 1)

	code, raw := s.call(t, http.MethodPost, "/cart", token, map[string]int64{"product_id": product.ID, "quantity": 5})
	require.Equal(t, http.StatusConflict, code)

	body := decode[struct {
		Detail struct {
			ProductID int64 `json:"product_id"`
			Available int64 `json:"available"`
			Requested int64 `json:"requested"`
		} `json:"detail"`
	}](t, raw)
	assert.Equal(t, product.ID, body.Detail.ProductID)
	assert.Equal(t, int64(1), body.Detail.Available)
	assert.Equal(t, int64(5), body.Detail.Requested)

	code, _ = s.call(t, http.MethodPost, "/orders", token, nil)
	assert.Equal(t, http.StatusBadRequest, code, "empty cart")
}

func TestAuthBoundaries(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.call(t, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.call(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "nobody", "credential": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.call(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "x", "credential": "x", "channel_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	token := s.registerAndLogin(t, "carol", "")
	code, _ = s.call(t, http.MethodGet, "/admin/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	admin := s.adminLogin(t)
	code, _ = s.call(t, http.MethodGet, "/cart", admin, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// 同じユーザー名は登録できない
	code, _ = s.call(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "carol", "credential": "x", "name": "c"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.call(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.call(t, http.MethodGet, "/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestForceLogoutClosesSessionsAndStream(t *testing.T) {
	s := newTestServer(t)
	stream, channelID := s.openStream(t)
	token := s.registerAndLogin(t, "dave", channelID)
	admin := s.adminLogin(t)

	code, raw := s.call(t, http.MethodPost, "/admin/customers/dave/force-logout", admin, nil)
	require.Equal(t, http.StatusOK, code, string(raw))
	res := decode[struct {
		Sessions int `json:"sessions"`
		Streams  int `json:"streams"`
	}](t, raw)
	assert.Equal(t, 1, res.Sessions)
	assert.Equal(t, 1, res.Streams)

	stream.waitClosed(t)

	code, _ = s.call(t, http.MethodGet, "/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDeleteCategoryCascadesAndBroadcasts(t *testing.T) {
	s := newTestServer(t)
	stream, channelID := s.openStream(t)
	token := s.registerAndLogin(t, "erin", channelID)
	admin := s.adminLogin(t)

	cat, product := s.seedProduct(t, admin, 5)
	stream.nextMessage(t)

	code, _ := s.call(t, http.MethodPost, "/cart", token, map[string]int64{"product_id": product.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, code)

	code, raw := s.call(t, http.MethodDelete, fmt.Sprintf("/admin/categories/%d", cat.ID), admin, nil)
	require.Equal(t, http.StatusNoContent, code, string(raw))
	assert.Equal(t, "Category Shoes has been removed from the catalog", stream.nextMessage(t))

	code, raw = s.call(t, http.MethodGet, "/products", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]model.Product](t, raw))

	// カートには残るがMissingで知らせる
	code, raw = s.call(t, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[usecase.CartView](t, raw)
	assert.Empty(t, view.Lines)
	assert.Equal(t, []int64{product.ID}, view.Missing)
}

func TestDeleteOrderedProductConflicts(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "frank", "")
	admin := s.adminLogin(t)
	_, product := s.seedProduct(t, admin, 5)

	code, _ := s.call(t, http.MethodPost, "/cart", token, map[string]int64{"product_id": product.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.call(t, http.MethodPost, "/orders", token, nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.call(t, http.MethodDelete, fmt.Sprintf("/admin/products/%d", product.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, raw := s.call(t, http.MethodPut, fmt.Sprintf("/admin/products/%d/stock", product.ID), admin, map[string]int64{"stock_quantity": 42})
	require.Equal(t, http.StatusOK, code, string(raw))

	code, raw = s.call(t, http.MethodGet, "/admin/products", admin, nil)
	require.Equal(t, http.StatusOK, code)
	products := decode[[]model.Product](t, raw)
	require.Len(t, products, 1)
	assert.Equal(t, int64(42), products[0].StockQuantity)

	code, raw = s.call(t, http.MethodGet, fmt.Sprintf("/admin/audit-logs?action=update_stock&resource_id=%d", product.ID), admin, nil)
	require.Equal(t, http.StatusOK, code, string(raw))
	logs := decode[[]model.AuditLog](t, raw)
	require.Len(t, logs, 1)
	assert.Equal(t, "admin", logs[0].Actor)

	code, _ = s.call(t, http.MethodGet, "/admin/audit-logs?resource_id=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
