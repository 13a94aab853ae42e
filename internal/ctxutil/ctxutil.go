package ctxutil

import (
	"context"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyOpName key = iota
	keyTrigger
)

// WithOp /Op — имя операции (для логов и Sentry)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v := ctx.Value(keyOpName)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// WithTrigger /Trigger — что запустило синхронизацию: startup, reconnect, manual.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, keyTrigger, trigger)
}

func Trigger(ctx context.Context) string {
	s, _ := ctx.Value(keyTrigger).(string)
	if s == "" {
		return "manual"
	}
	return s
}

var (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultRemoteTimeout = 15 * time.Second
)

// WithTimeout — обёртка над context.WithTimeout; d<=0 — без таймаута.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithStoreTimeout — стандартный таймаут для локального хранилища.
func WithStoreTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return capped(parent, DefaultStoreTimeout)
}

// WithRemoteTimeout — таймаут на один запрос к удалённому хранилищу.
func WithRemoteTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultRemoteTimeout
	}
	return capped(parent, d)
}

// если у родителя осталось меньше d — берём остаток
func capped(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < d {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, d)
}
