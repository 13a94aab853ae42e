package logging

import (
	"context"
	"strings"

	"github.com/Spok95/school-attendance/internal/ctxutil"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	Base   *zap.Logger
	Sugar  *zap.SugaredLogger
	Level  zap.AtomicLevel
	Closer func()
}

func Init(level, env string) (*Log, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var cfg zap.Config
	if strings.ToLower(env) == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Log{
		Base:   base,
		Sugar:  base.Sugar(),
		Level:  lvl,
		Closer: func() { _ = base.Sync() },
	}, nil
}

// Named — логгер компонента (store, syncer, remote...).
func (l *Log) Named(component string) *zap.Logger {
	return l.Base.Named(component)
}

// OrNop подставляет no-op логгер, чтобы компоненты не проверяли nil.
func OrNop(lg *zap.Logger) *zap.Logger {
	if lg == nil {
		return zap.NewNop()
	}
	return lg
}

// For добавляет к логгеру поля операции из контекста.
func For(ctx context.Context, lg *zap.Logger) *zap.Logger {
	lg = OrNop(lg)
	if op, ok := ctxutil.Op(ctx); ok {
		lg = lg.With(zap.String("op", op))
	}
	return lg.With(zap.String("trigger", ctxutil.Trigger(ctx)))
}
