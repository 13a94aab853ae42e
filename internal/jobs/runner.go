package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/ctxutil"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
	wg  sync.WaitGroup
}

func New(ctx context.Context, lg *zap.Logger) *Runner {
	return &Runner{ctx: ctx, log: logging.OrNop(lg)}
}

// Every запускает fn раз в interval, пока жив контекст раннера.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.schedule(interval, name, fn, false)
}

// EveryNow — то же, но первый запуск сразу.
func (r *Runner) EveryNow(interval time.Duration, name string, fn Job) {
	r.schedule(interval, name, fn, true)
}

func (r *Runner) schedule(interval time.Duration, name string, fn Job, now bool) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if now {
			r.run(name, fn)
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	ctx := ctxutil.WithTrigger(ctxutil.WithOp(r.ctx, name), "job")
	result := "ok"
	defer func() {
		if p := recover(); p != nil {
			result = "panic"
			observability.CaptureCtx(ctx, fmt.Errorf("panic in job %s: %v", name, p))
			r.log.Error("job panicked", zap.String("job", name), zap.Any("panic", p))
		}
		jobRuns.WithLabelValues(name, result).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if result == "ok" {
			jobLastSuccess.WithLabelValues(name).SetToCurrentTime()
		}
	}()

	if err := fn(ctx); err != nil {
		result = "error"
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
	}
}

// Wait дожидается остановки всех задач после отмены контекста.
func (r *Runner) Wait() { r.wg.Wait() }
