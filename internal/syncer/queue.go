package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/metrics"
	"github.com/Spok95/school-attendance/internal/models"
	"github.com/Spok95/school-attendance/internal/store"
)

// Kind — тип отложенной записи.
type Kind string

const (
	// KindBatch — пакет отметок (одиночная отметка тоже ставится пакетом из одной).
	KindBatch Kind = "batch"
	// KindSnapshot — маркер «нужен полный снимок»; при выгрузке снимок строится
	// заново из локального хранилища, чтобы не затереть более свежие данные.
	KindSnapshot Kind = "snapshot"
)

// QueueItem — элемент очереди синхронизации (коллекция sync_queue).
type QueueItem struct {
	ID         string                    `json:"id"`
	Kind       Kind                      `json:"kind"`
	Records    []models.AttendanceRecord `json:"records,omitempty"`
	EnqueuedAt time.Time                 `json:"enqueuedAt"`
	Attempts   int                       `json:"attempts"`
	LastError  string                    `json:"lastError,omitempty"`
}

// ErrQueued — запись не ушла в удалённое хранилище и поставлена в очередь.
// Вызывающий может показать «нет сети, синхронизируем позже».
var ErrQueued = errors.New("remote unavailable, queued for later sync")

type QueuedError struct {
	Kind Kind
	Err  error
}

func (e *QueuedError) Error() string {
	return fmt.Sprintf("sync %s queued: %v", e.Kind, e.Err)
}

func (e *QueuedError) Unwrap() []error { return []error{ErrQueued, e.Err} }

// Queue возвращает текущее содержимое очереди.
func (c *Coordinator) Queue(ctx context.Context) ([]QueueItem, error) {
	items, err := store.ReadCollection[QueueItem](ctx, c.store, store.SyncQueue)
	if errors.Is(err, store.ErrCorrupt) {
		c.log.Error("sync queue is corrupt, pending writes lost", zap.Error(err))
		return items, nil
	}
	return items, err
}

func (c *Coordinator) enqueue(ctx context.Context, item QueueItem, cause error) error {
	item.ID = uuid.NewString()
	item.EnqueuedAt = c.now().UTC()
	if cause != nil {
		item.LastError = cause.Error()
	}

	var depth int
	err := store.Update(ctx, c.store, store.SyncQueue, func(items []QueueItem) []QueueItem {
		if item.Kind == KindSnapshot {
			// одного ожидающего маркера достаточно. Маркер текущей выгрузки
			// не в счёт: её снимок мог быть собран до этой правки.
			for _, it := range items {
				if it.Kind == KindSnapshot && !c.isInflight(it.ID) {
					depth = len(items)
					return items
				}
			}
		}
		items = append(items, item)
		depth = len(items)
		return items
	})
	if err != nil {
		// очередь не записалась — данные остались только локально
		c.log.Error("enqueue failed", zap.String("kind", string(item.Kind)), zap.Error(err))
		return fmt.Errorf("enqueue %s: %w", item.Kind, err)
	}
	metrics.QueueDepth.Set(float64(depth))
	c.log.Info("write queued for later sync",
		zap.String("kind", string(item.Kind)),
		zap.Int("records", len(item.Records)),
		zap.Int("depth", depth))
	return &QueuedError{Kind: item.Kind, Err: cause}
}

// removeDrained убирает ровно выгруженные элементы: то, что встало в очередь
// во время выгрузки, остаётся.
func (c *Coordinator) removeDrained(ctx context.Context, ids map[string]struct{}) (int, error) {
	var depth int
	err := store.Update(ctx, c.store, store.SyncQueue, func(items []QueueItem) []QueueItem {
		kept := items[:0]
		for _, it := range items {
			if _, done := ids[it.ID]; !done {
				kept = append(kept, it)
			}
		}
		depth = len(kept)
		return kept
	})
	return depth, err
}

func (c *Coordinator) markAttempt(ctx context.Context, ids map[string]struct{}, cause error) {
	err := store.Update(ctx, c.store, store.SyncQueue, func(items []QueueItem) []QueueItem {
		for i := range items {
			if _, hit := ids[items[i].ID]; hit {
				items[i].Attempts++
				items[i].LastError = cause.Error()
			}
		}
		return items
	})
	if err != nil {
		c.log.Warn("failed to record drain attempt", zap.Error(err))
	}
}
