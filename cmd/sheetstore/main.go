package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/config"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/observability"
	"github.com/Spok95/school-attendance/internal/sheetstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "")
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.SheetStore, lg)
	if err != nil {
		lg.Base.Error("backend open failed", zap.String("backend", cfg.SheetStore.Backend), zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = backend.Close() }()

	srv := sheetstore.NewServer(sheetstore.Options{
		Backend: backend,
		Logger:  lg.Named("sheetstore"),
	})

	go func() {
		if err := srv.Start(cfg.SheetStore.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Base.Error("sheetstore server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shCtx); err != nil {
		lg.Base.Warn("shutdown", zap.Error(err))
	}
	lg.Base.Info("sheetstore stopped")
}

func openBackend(ctx context.Context, cfg config.SheetStoreConfig, lg *logging.Log) (sheetstore.Backend, error) {
	switch cfg.Backend {
	case "xlsx", "":
		return sheetstore.OpenXLSX(cfg.XLSXPath, lg.Named("xlsx"))
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		return sheetstore.OpenPostgres(ctx, cfg.DatabaseURL, lg.Named("postgres"))
	default:
		return nil, fmt.Errorf("unknown SHEETSTORE_BACKEND %q", cfg.Backend)
	}
}
