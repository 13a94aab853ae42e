// Package store — локальное хранилище: именованные коллекции записей,
// каждая лежит одним JSON-массивом в SQLite-файле профиля.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/metrics"
)

// Имена коллекций.
const (
	Classes    = "classes"
	Students   = "students"
	Attendance = "attendance"
	Bimesters  = "bimesters"
	Holidays   = "holidays"
	SyncQueue  = "sync_queue"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db  *sql.DB
	log *zap.Logger

	// read-modify-write коллекций идёт под одним мьютексом
	mu sync.Mutex
}

// dbtx — общее у *sql.DB и *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open открывает (или создаёт) файл хранилища и применяет миграции.
func Open(ctx context.Context, path string, lg *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite: один писатель
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, log: logging.OrNop(lg)}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping — для /healthz.
func (s *Store) Ping(ctx context.Context) error {
	t0 := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	metrics.ObserveStorePing(time.Since(t0))
	return nil
}

// tx выполняет fn в транзакции под мьютексом хранилища.
func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "begin", Kind: ErrWrite, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &Error{Op: "commit", Kind: ErrWrite, Err: err}
	}
	return nil
}
