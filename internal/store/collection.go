package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/metrics"
)

// ReadCollection читает коллекцию целиком. Отсутствующая коллекция — пустой
// срез без ошибки; битая — пустой срез и *Error с ErrCorrupt.
func ReadCollection[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	return read[T](ctx, s.db, name)
}

// WriteCollection полностью заменяет коллекцию.
func WriteCollection[T any](ctx context.Context, s *Store, name string, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(write(ctx, s.db, name, items))
}

// Update — атомарный read-modify-write одной коллекции. Битая коллекция
// передаётся в fn пустой.
func Update[T any](ctx context.Context, s *Store, name string, fn func([]T) []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := read[T](ctx, s.db, name)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return err
	}
	if err != nil {
		s.log.Warn("overwriting corrupt collection", zap.String("collection", name), zap.Error(err))
	}
	return s.track(write(ctx, s.db, name, fn(items)))
}

func read[T any](ctx context.Context, q dbtx, name string) ([]T, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM collections WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []T{}, nil
	}
	if err != nil {
		return []T{}, &Error{Op: "read", Collection: name, Kind: ErrRead, Err: err}
	}
	var out []T
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return []T{}, &Error{Op: "read", Collection: name, Kind: ErrCorrupt, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func write[T any](ctx context.Context, q dbtx, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return &Error{Op: "encode", Collection: name, Kind: ErrWrite, Err: err}
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO collections (name, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, name, string(b))
	if err != nil {
		return &Error{Op: "write", Collection: name, Kind: ErrWrite, Err: err}
	}
	return nil
}

// readDegraded — битая коллекция логируется и читается как пустая.
func readDegraded[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	items, err := ReadCollection[T](ctx, s, name)
	if errors.Is(err, ErrCorrupt) {
		s.log.Warn("corrupt collection treated as empty", zap.Error(err))
		metrics.StoreErrors.WithLabelValues("corrupt").Inc()
		return items, nil
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("read").Inc()
	}
	return items, err
}

func (s *Store) track(err error) error {
	if err != nil {
		metrics.StoreErrors.WithLabelValues("write").Inc()
	}
	return err
}

// upsert заменяет первый совпавший элемент или добавляет в конец.
func upsert[T any](items []T, v T, match func(T) bool) []T {
	for i := range items {
		if match(items[i]) {
			items[i] = v
			return items
		}
	}
	return append(items, v)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := items[:0:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
