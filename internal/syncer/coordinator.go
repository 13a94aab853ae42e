// Package syncer доставляет локальные изменения в удалённое хранилище.
// Запись всегда сначала попадает в локальное хранилище; отправка делается
// «выстрелил и забыл», а при сетевой ошибке запись встаёт в очередь
// sync_queue и выгружается при следующем подключении.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/ctxutil"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/metrics"
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/observability"
	"github.com/Spok95/school-attendance/internal/remote"
	"github.com/Spok95/school-attendance/internal/store"
)

// Remote — операции записи удалённого хранилища (remote.Client).
type Remote interface {
	SaveAll(ctx context.Context, snap models.Snapshot) error
	SaveOne(ctx context.Context, rec models.AttendanceRecord) error
	SaveBatch(ctx context.Context, recs []models.AttendanceRecord) error
}

// Prober проверяет доступность удалённого хранилища.
type Prober interface {
	Ping(ctx context.Context) error
}

type Coordinator struct {
	store  *store.Store
	remote Remote
	log    *zap.Logger
	now    func() time.Time

	drainMu sync.Mutex // одна выгрузка за раз
	online  atomic.Bool

	// элементы, которые сейчас выгружаются; enqueue не считает их маркеры
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	wg      sync.WaitGroup
}

func New(st *store.Store, rc Remote, lg *zap.Logger) *Coordinator {
	c := &Coordinator{
		store:  st,
		remote: rc,
		log:    logging.OrNop(lg),
		now:    time.Now,
	}
	// пока не доказано обратное, считаем, что сеть есть
	c.online.Store(true)
	metrics.SetOnline(true)
	return c
}

func (c *Coordinator) Online() bool { return c.online.Load() }

// SetOnline переключает признак связи. Переход offline -> online запускает
// фоновую выгрузку очереди.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) {
	prev := c.online.Swap(online)
	metrics.SetOnline(online)
	if prev == online {
		return
	}
	if !online {
		c.log.Warn("remote store went offline")
		return
	}
	c.log.Info("remote store is back online, draining queue")
	dctx := ctxutil.WithTrigger(context.WithoutCancel(ctx), "reconnect")
	c.Go(func() {
		if _, err := c.Drain(dctx); err != nil {
			c.log.Warn("reconnect drain failed", zap.Error(err))
		}
	})
}

// Go запускает фоновую задачу; Wait дожидается всех таких задач.
func (c *Coordinator) Go(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				observability.CaptureErr(fmt.Errorf("panic in sync task: %v", r))
				c.log.Error("panic in sync task", zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

func (c *Coordinator) Wait() { c.wg.Wait() }

// PushRecord отправляет одну отметку. При сетевой ошибке отметка встаёт
// в очередь пакетом из одной записи, а возвращается *QueuedError.
func (c *Coordinator) PushRecord(ctx context.Context, rec models.AttendanceRecord) error {
	rec = rec.Normalized()
	item := QueueItem{Kind: KindBatch, Records: []models.AttendanceRecord{rec}}
	return c.push(ctx, "record", item, func(ctx context.Context) error {
		return c.remote.SaveOne(ctx, rec)
	})
}

// PushBatch отправляет пакет отметок (дубли схлопываются, последняя побеждает).
func (c *Coordinator) PushBatch(ctx context.Context, recs []models.AttendanceRecord) error {
	recs = models.DedupeAttendance(recs)
	if len(recs) == 0 {
		return nil
	}
	item := QueueItem{Kind: KindBatch, Records: recs}
	return c.push(ctx, string(KindBatch), item, func(ctx context.Context) error {
		return c.remote.SaveBatch(ctx, recs)
	})
}

// PushSnapshot отправляет полный снимок локального хранилища.
func (c *Coordinator) PushSnapshot(ctx context.Context) error {
	return c.push(ctx, string(KindSnapshot), QueueItem{Kind: KindSnapshot}, func(ctx context.Context) error {
		snap, err := c.store.Snapshot(ctx)
		if err != nil {
			return err
		}
		return c.remote.SaveAll(ctx, snap)
	})
}

// PushBatchAsync — то же, что PushBatch, но в фоне; done (если задан)
// получает результат.
func (c *Coordinator) PushBatchAsync(ctx context.Context, recs []models.AttendanceRecord, done func(error)) {
	ctx = context.WithoutCancel(ctx)
	c.Go(func() {
		err := c.PushBatch(ctx, recs)
		if done != nil {
			done(err)
		}
	})
}

// PushSnapshotAsync — фоновый PushSnapshot.
func (c *Coordinator) PushSnapshotAsync(ctx context.Context, done func(error)) {
	ctx = context.WithoutCancel(ctx)
	c.Go(func() {
		err := c.PushSnapshot(ctx)
		if done != nil {
			done(err)
		}
	})
}

func (c *Coordinator) push(ctx context.Context, label string, item QueueItem, send func(context.Context) error) error {
	lg := logging.For(ctx, c.log)
	if !c.Online() {
		metrics.Pushes.WithLabelValues(label, "queued").Inc()
		return c.enqueue(ctx, item, errOffline)
	}

	err := send(ctx)
	switch {
	case err == nil:
		metrics.Pushes.WithLabelValues(label, "ok").Inc()
		return nil
	case remote.IsNetwork(err):
		c.SetOnline(ctx, false)
		metrics.Pushes.WithLabelValues(label, "queued").Inc()
		lg.Warn("push failed, queueing", zap.String("kind", label), zap.Error(err))
		return c.enqueue(ctx, item, err)
	default:
		// ошибка не сетевая (локальное хранилище, кодирование): повтор не поможет
		metrics.Pushes.WithLabelValues(label, "failed").Inc()
		lg.Error("push failed", zap.String("kind", label), zap.Error(err))
		observability.CaptureCtx(ctx, err)
		return fmt.Errorf("push %s: %w", label, err)
	}
}

var errOffline = errors.New("remote store is offline")

// Drain выгружает очередь: все пакеты сливаются в один SaveBatch, при наличии
// маркера снимка отправляется один SaveAll со свежим снимком. При успехе из
// очереди удаляются ровно выгруженные элементы. Возвращает их число.
func (c *Coordinator) Drain(ctx context.Context) (int, error) {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	lg := logging.For(ctx, c.log)
	items, err := c.Queue(ctx)
	if err != nil {
		return 0, fmt.Errorf("drain: load queue: %w", err)
	}
	if len(items) == 0 {
		metrics.QueueDepth.Set(0)
		return 0, nil
	}

	start := time.Now()
	ids := make(map[string]struct{}, len(items))
	var recs []models.AttendanceRecord
	snapshot := false
	for _, it := range items {
		ids[it.ID] = struct{}{}
		switch it.Kind {
		case KindSnapshot:
			snapshot = true
		default:
			recs = append(recs, it.Records...)
		}
	}
	c.setInflight(ids)
	defer c.setInflight(nil)

	err = c.replay(ctx, models.DedupeAttendance(recs), snapshot)
	metrics.DrainDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Drains.WithLabelValues("failed").Inc()
		c.markAttempt(ctx, ids, err)
		if remote.IsNetwork(err) {
			c.SetOnline(ctx, false)
		} else {
			observability.CaptureCtx(ctx, err)
		}
		lg.Warn("drain failed", zap.Int("items", len(items)), zap.Error(err))
		return 0, fmt.Errorf("drain: %w", err)
	}

	depth, err := c.removeDrained(ctx, ids)
	if err != nil {
		// удалённая сторона уже получила данные; повтор идемпотентен
		metrics.Drains.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("drain: trim queue: %w", err)
	}
	metrics.QueueDepth.Set(float64(depth))
	metrics.Drains.WithLabelValues("ok").Inc()
	// выгрузка прошла — связь есть
	if !c.online.Swap(true) {
		metrics.SetOnline(true)
	}
	lg.Info("sync queue drained",
		zap.Int("items", len(items)),
		zap.Int("records", len(recs)),
		zap.Bool("snapshot", snapshot),
		zap.Int("left", depth))
	return len(items), nil
}

func (c *Coordinator) setInflight(ids map[string]struct{}) {
	c.inflightMu.Lock()
	c.inflight = ids
	c.inflightMu.Unlock()
}

func (c *Coordinator) isInflight(id string) bool {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

func (c *Coordinator) replay(ctx context.Context, recs []models.AttendanceRecord, snapshot bool) error {
	if len(recs) > 0 {
		if err := c.remote.SaveBatch(ctx, recs); err != nil {
			return err
		}
	}
	if !snapshot {
		return nil
	}
	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	return c.remote.SaveAll(ctx, snap)
}

// Start выгружает то, что осталось в очереди с прошлого запуска.
func (c *Coordinator) Start(ctx context.Context) (int, error) {
	return c.Drain(ctxutil.WithTrigger(ctx, "startup"))
}

// ProbeJob — задача для jobs.Runner: проверяет связь и обновляет признак online.
func (c *Coordinator) ProbeJob(p Prober) func(context.Context) error {
	return func(ctx context.Context) error {
		err := p.Ping(ctx)
		c.SetOnline(ctx, err == nil)
		return err
	}
}

// PushRecordAsync — фоновый PushRecord.
func (c *Coordinator) PushRecordAsync(ctx context.Context, rec models.AttendanceRecord, done func(error)) {
	ctx = context.WithoutCancel(ctx)
	c.Go(func() {
		err := c.PushRecord(ctx, rec)
		if done != nil {
			done(err)
		}
	})
}
