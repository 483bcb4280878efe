package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/platform/logger"
	"storefront/internal/server"
	"storefront/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	//通知（REDIS_ADDRがあればインスタンス間で中継）
	registry := notify.NewRegistry(log)
	var notifier usecase.Notifier = registry
	if cfg.RedisAddr != "" {
		relay, err := notify.NewRelay(ctx, log, cfg.RedisAddr, cfg.RedisChannel, registry)
		if err != nil {
			return fmt.Errorf("notify relay: %w", err)
		}
		defer relay.Close()
		if err := relay.StartForwarder(ctx); err != nil {
			return fmt.Errorf("notify relay: %w", err)
		}
		notifier = relay
		log.Info("notification relay enabled", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	}

	creds, err := usecase.NewCredentialScheme(cfg.CredentialMode, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	//Usecase生成
	factory := usecase.NewSessionFactory(usecase.SessionFactoryDeps{
		Tx:                infraRepo.NewTxManagerGorm(gormDB),
		Repos:             infraRepo.NewRepos(gormDB),
		Registry:          registry,
		Notifier:          notifier,
		Credentials:       creds,
		AdminUsername:     cfg.AdminUsername,
		AdminCredential:   cfg.AdminCredential,
		LowStockThreshold: cfg.LowStockThreshold,
		Logger:            log,
	})

	//Server起動
	e := server.New(server.Deps{
		Factory:  factory,
		Registry: registry,
		Issuer:   middleware.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Sessions: handler.NewSessionTable(),
		Hub:      handler.NewChannelHub(log, cfg.NotifyBuffer),
		Logger:   log,
	})

	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	return server.Start(ctx, e, addr, log)
}
