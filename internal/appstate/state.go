// Package appstate — единая точка чтения данных для CLI, HTTP и дайджеста:
// кэш всех коллекций поверх локального хранилища, гидратация из облака и
// подписки на изменения.
package appstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/ctxutil"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/observability"
	"github.com/Spok95/school-attendance/internal/store"
)

// Syncer — фоновая доставка изменений (syncer.Coordinator).
type Syncer interface {
	PushRecordAsync(ctx context.Context, rec models.AttendanceRecord, done func(error))
	PushBatchAsync(ctx context.Context, recs []models.AttendanceRecord, done func(error))
	PushSnapshotAsync(ctx context.Context, done func(error))
	Start(ctx context.Context) (int, error)
}

// Fetcher читает полный снимок удалённого хранилища (remote.Client).
type Fetcher interface {
	FetchAll(ctx context.Context) (models.Snapshot, error)
}

type Options struct {
	// SeedSample — демо-данные при пустом хранилище.
	SeedSample bool
	// OnSyncResult получает результат каждой фоновой отправки
	// (nil, ошибку с syncer.ErrQueued или иную).
	OnSyncResult func(error)
	Now          func() time.Time
}

type State struct {
	store  *store.Store
	sync   Syncer
	remote Fetcher
	log    *zap.Logger
	opts   Options

	mu   sync.RWMutex
	data models.Snapshot

	subMu   sync.Mutex
	subs    map[int]func(models.Snapshot)
	nextSub int
}

// New собирает состояние. sc и rc могут быть nil: тогда работаем
// только локально.
func New(st *store.Store, sc Syncer, rc Fetcher, lg *zap.Logger, opts Options) *State {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &State{
		store:  st,
		sync:   sc,
		remote: rc,
		log:    logging.OrNop(lg),
		opts:   opts,
		subs:   make(map[int]func(models.Snapshot)),
	}
}

// Snapshot — копия кэша.
func (s *State) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

func (s *State) Classes() []models.ClassGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ClassGroup(nil), s.data.Classes...)
}

func (s *State) Students() []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Student(nil), s.data.Students...)
}

func (s *State) Attendance() []models.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AttendanceRecord(nil), s.data.Attendance...)
}

func (s *State) Bimesters() []models.Bimester {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Bimester(nil), s.data.Bimesters...)
}

func (s *State) Holidays() []models.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Holiday(nil), s.data.Holidays...)
}

// Class ищет класс в кэше.
func (s *State) Class(id string) (models.ClassGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.data.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return models.ClassGroup{}, false
}

// Subscribe регистрирует наблюдателя; он вызывается после каждого Refresh
// с копией данных. Возвращает функцию отписки.
func (s *State) Subscribe(fn func(models.Snapshot)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Refresh перечитывает все коллекции из локального хранилища.
func (s *State) Refresh(ctx context.Context) error {
	ctx, cancel := ctxutil.WithStoreTimeout(ctx)
	defer cancel()

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		logging.For(ctx, s.log).Error("refresh failed, keeping cached data", zap.Error(err))
		observability.CaptureCtx(ctx, err)
		return err
	}
	s.mu.Lock()
	s.data = snap
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *State) notify(snap models.Snapshot) {
	s.subMu.Lock()
	fns := make([]func(models.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// HydrateFromCloud перезаписывает переданные (не nil) коллекции локального
// хранилища снимком из облака и обновляет кэш. Даты канонизируются.
func (s *State) HydrateFromCloud(ctx context.Context, snap models.Snapshot) error {
	ctx = ctxutil.WithOp(ctx, "hydrate")
	if err := s.store.ReplaceAll(ctx, snap); err != nil {
		logging.For(ctx, s.log).Error("hydrate failed", zap.Error(err))
		observability.CaptureCtx(ctx, err)
		return err
	}
	logging.For(ctx, s.log).Info("local store hydrated from cloud",
		zap.Int("classes", len(snap.Classes)),
		zap.Int("students", len(snap.Students)),
		zap.Int("attendance", len(snap.Attendance)))
	return s.Refresh(ctx)
}

// Pull читает облако и гидратирует локальное хранилище, если там есть
// хотя бы один класс. Возвращает true, если гидратация была.
func (s *State) Pull(ctx context.Context) (bool, error) {
	if s.remote == nil {
		return false, nil
	}
	snap, err := s.remote.FetchAll(ctx)
	if err != nil {
		return false, err
	}
	if len(snap.Classes) == 0 {
		logging.For(ctx, s.log).Info("cloud has no classes, keeping local data")
		return false, nil
	}
	return true, s.HydrateFromCloud(ctx, snap)
}

// Bootstrap — запуск: демо-данные (по опции), выгрузка очереди синхронизации,
// затем чтение облака и гидратация. Пока в очереди есть невыгруженные
// правки, облако не читается: гидратация затёрла бы их локально.
// Недоступность облака не ошибка: работаем на локальных данных.
func (s *State) Bootstrap(ctx context.Context) error {
	ctx = ctxutil.WithOp(ctx, "bootstrap")
	lg := logging.For(ctx, s.log)

	if s.opts.SeedSample {
		if _, err := s.store.SeedSample(ctx, s.opts.Now()); err != nil {
			lg.Warn("sample seed failed", zap.Error(err))
		}
	}

	pull := true
	if s.sync != nil {
		n, err := s.sync.Start(ctx)
		switch {
		case err != nil:
			pull = false
			lg.Warn("startup drain failed, keeping local data until the queue is sent", zap.Error(err))
		case n > 0:
			lg.Info("startup drain done", zap.Int("items", n))
		}
	}

	if pull {
		if _, err := s.Pull(ctx); err != nil {
			lg.Warn("initial cloud sync failed, using local data", zap.Error(err))
		}
	}

	return s.Refresh(ctx)
}

func (s *State) syncResult(err error) {
	if s.opts.OnSyncResult != nil {
		s.opts.OnSyncResult(err)
	}
}
