// Package remote — тонкий HTTP-клиент удалённого хранилища (таблицы).
//
// Запись — «выстрелил и забыл»: ответ на POST не читается, поэтому методы
// записи возвращают только транспортные ошибки и никогда не подтверждают,
// что данные реально сохранены. Повторы — забота syncer.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/ctxutil"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/metrics"
	"github.com/Spok95/school-attendance/internal/models"
)

// Действия протокола.
const (
	ActionGetData        = "getData"
	ActionSaveAll        = "saveAll"
	ActionSaveAttendance = "saveAttendance"
	ActionSaveBatch      = "saveBatchAttendance"
)

// NetworkError — удалённое хранилище недоступно или ответило не 2xx (только
// для чтения: статус записи мы не видим).
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork — ошибка связи с удалённым хранилищем.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	log      *zap.Logger
}

type Option func(*Client)

// WithHTTPClient — свой http.Client (тесты, прокси).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(endpoint string, timeout time.Duration, lg *zap.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		timeout:  timeout,
		log:      logging.OrNop(lg),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured — задан ли адрес удалённого хранилища.
func (c *Client) Configured() bool { return c != nil && c.endpoint != "" }

// FetchAll — один GET ?action=getData. Ошибки пробрасываются вызывающему.
func (c *Client) FetchAll(ctx context.Context) (models.Snapshot, error) {
	ctx, cancel := ctxutil.WithRemoteTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: ActionGetData, Err: err}
	}
	q := u.Query()
	q.Set("action", ActionGetData)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: ActionGetData, Err: err}
	}

	t0 := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: ActionGetData, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RemoteFetch.Observe(time.Since(t0).Seconds())

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.Snapshot{}, &NetworkError{Op: ActionGetData, Status: resp.StatusCode}
	}

	snap, err := decodeSnapshot(resp.Body)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: ActionGetData, Err: fmt.Errorf("decode: %w", err)}
	}
	c.log.Debug("remote data fetched",
		zap.Int("classes", len(snap.Classes)),
		zap.Int("students", len(snap.Students)),
		zap.Int("attendance", len(snap.Attendance)))
	return snap, nil
}

// SaveAll — полный снимок; удалённая сторона перезаписывает каждую коллекцию.
func (c *Client) SaveAll(ctx context.Context, snap models.Snapshot) error {
	return c.post(ctx, saveAllBody{
		Action:     ActionSaveAll,
		Classes:    snap.Classes,
		Students:   snap.Students,
		Attendance: snap.Attendance,
		Bimesters:  snap.Bimesters,
		Holidays:   snap.Holidays,
	}, ActionSaveAll)
}

// SaveOne — upsert одной отметки.
func (c *Client) SaveOne(ctx context.Context, rec models.AttendanceRecord) error {
	return c.post(ctx, saveOneBody{Action: ActionSaveAttendance, Record: rec.Normalized()}, ActionSaveAttendance)
}

// SaveBatch — пакетный upsert отметок.
func (c *Client) SaveBatch(ctx context.Context, recs []models.AttendanceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return c.post(ctx, saveBatchBody{Action: ActionSaveBatch, Records: models.DedupeAttendance(recs)}, ActionSaveBatch)
}

// Ping — любой HTTP-ответ значит «на связи».
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := ctxutil.WithRemoteTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) post(ctx context.Context, body any, action string) error {
	ctx, cancel := ctxutil.WithRemoteTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("remote %s: encode: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &NetworkError{Op: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: action, Err: err}
	}
	// статус и тело не смотрим: у удалённой стороны нет читаемого ответа
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	c.log.Debug("remote write sent", zap.String("action", action), zap.Int("bytes", len(payload)))
	return nil
}

// nil-коллекция уходит как null и удалённой стороной не трогается;
// пустой срез очищает лист.
type saveAllBody struct {
	Action     string                    `json:"action"`
	Classes    []models.ClassGroup       `json:"classes"`
	Students   []models.Student          `json:"students"`
	Attendance []models.AttendanceRecord `json:"attendance"`
	Bimesters  []models.Bimester         `json:"bimesters"`
	Holidays   []models.Holiday          `json:"holidays"`
}

type saveOneBody struct {
	Action string                  `json:"action"`
	Record models.AttendanceRecord `json:"record"`
}

type saveBatchBody struct {
	Action  string                    `json:"action"`
	Records []models.AttendanceRecord `json:"records"`
}
