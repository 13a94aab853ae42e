//go:build testutil
// +build testutil

// Package testdb поднимает одноразовый Postgres в контейнере для
// интеграционных тестов бэкенда sheetstore (go test -tags testutil ./...).
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// DBHandle — контейнер и строка подключения к нему. Схему создаёт сам
// тестируемый код своими миграциями.
type DBHandle struct {
	DSN       string
	terminate func(context.Context) error
}

func (h *DBHandle) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = h.terminate(ctx)
}

// Start запускает контейнер и ждёт, пока база начнёт отвечать.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("sheets"),
		postgres.WithUsername("sheets"),
		postgres.WithPassword("sheets"),
	)
	if err != nil {
		return nil, fmt.Errorf("run container: %w", err)
	}
	h := &DBHandle{terminate: pg.Terminate}

	h.DSN, err = pg.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		err = waitReady(ctx, h.DSN)
	}
	if err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// Must — Start для тестов: без Docker тест пропускается, контейнер
// останавливается в t.Cleanup.
func Must(t testing.TB) *DBHandle {
	t.Helper()
	h, err := Start(context.Background())
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func waitReady(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(20 * time.Second)
	for {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("db not ready: %s", dsn)
		case <-tick.C:
		}
	}
}
