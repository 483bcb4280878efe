package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infrarepo "storefront/internal/infra/repository"
	"storefront/internal/notify"
	"storefront/internal/platform/logger"
	repo "storefront/internal/repository"
)

type testEnv struct {
	db       *gorm.DB
	repos    repo.TxRepos
	registry *notify.Registry
	factory  *SessionFactory
}

type envOption func(*SessionFactoryDeps)

func withCredentials(c CredentialScheme) envOption {
	return func(d *SessionFactoryDeps) { d.Credentials = c }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gdb, err := db.Connect(config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logger.NewNop()
	registry := notify.NewRegistry(log)
	repos := infrarepo.NewRepos(gdb)
	deps := SessionFactoryDeps{
		Tx:                infrarepo.NewTxManagerGorm(gdb),
		Repos:             repos,
		Registry:          registry,
		Credentials:       PlainCredentials{},
		AdminUsername:     "admin",
		AdminCredential:   "admin",
		LowStockThreshold: 5,
		Logger:            log,
		Now:               func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) },
	}
	for _, o := range opts {
		o(&deps)
	}

	return &testEnv{
		db:       gdb,
		repos:    repos,
		registry: registry,
		factory:  NewSessionFactory(deps),
	}
}

func (e *testEnv) category(t *testing.T, name string) model.Category {
	t.Helper()
	c, err := e.repos.Categories().Create(context.Background(), model.Category{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) product(t *testing.T, categoryID int64, name string, price string, stock int64) model.Product {
	t.Helper()
	p, err := e.repos.Products().Create(context.Background(), model.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		CategoryID:    categoryID,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := e.repos.Products().FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

// 登録してログインまで
func (e *testEnv) login(t *testing.T, username string, ch notify.Channel) *CustomerSession {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.factory.RegisterCustomer(ctx, RegisterCustomerInput{
		Username: username, Credential: "pw-" + username, Name: username,
	}))
	s, err := e.factory.Login(ctx, username, "pw-"+username, ch)
	require.NoError(t, err)
	return s
}

func (e *testEnv) admin(t *testing.T) *AdminContext {
	t.Helper()
	a, err := e.factory.AdminLogin(context.Background(), "admin", "admin")
	require.NoError(t, err)
	return a
}

type recordingChannel struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (c *recordingChannel) Deliver(_ context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, message)
	return nil
}

func (c *recordingChannel) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}
