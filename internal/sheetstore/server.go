package sheetstore

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/metrics"
	"github.com/Spok95/school-attendance/internal/observability"
	"github.com/Spok95/school-attendance/internal/remote"
)

type Options struct {
	Backend        Backend
	Logger         *zap.Logger
	DisableReqLogs bool
}

type Server struct {
	opts Options
	app  *echo.Echo
	log  *zap.Logger
}

// request — тело POST: действие плюс поля всех действий сразу.
type request struct {
	Action  string `json:"action"`
	Record  Row    `json:"record"`
	Records []Row  `json:"records"`
	SaveAllRequest
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func NewServer(opts Options) *Server {
	s := &Server{
		opts: opts,
		app:  echo.New(),
		log:  logging.OrNop(opts.Logger),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Use(middleware.Recover())
	if !s.opts.DisableReqLogs {
		s.app.Use(s.requestLog)
	}

	s.app.GET("/", s.getData)
	s.app.HEAD("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	s.app.POST("/", s.post)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.log.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("took", time.Since(start)))
		return err
	}
}

// Start блокирует до остановки; после Stop возвращает http.ErrServerClosed.
func (s *Server) Start(addr string) error {
	s.log.Info("sheetstore listening", zap.String("addr", addr))
	return s.app.Start(addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) getData(c echo.Context) error {
	action := c.QueryParam("action")
	if action != remote.ActionGetData {
		return s.reply(c, action, http.StatusBadRequest, response{Status: "error", Message: "unknown action"})
	}
	data, err := s.opts.Backend.GetData(c.Request().Context())
	if err != nil {
		return s.fail(c, action, err)
	}
	metrics.SheetRequests.WithLabelValues(action, strconv.Itoa(http.StatusOK)).Inc()
	return c.JSON(http.StatusOK, data)
}

func (s *Server) post(c echo.Context) error {
	var req request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return s.reply(c, "invalid", http.StatusBadRequest, response{Status: "error", Message: "invalid json body"})
	}

	ctx := c.Request().Context()
	var err error
	switch req.Action {
	case remote.ActionSaveAttendance:
		if req.Record == nil {
			return s.reply(c, req.Action, http.StatusBadRequest, response{Status: "error", Message: "record is required"})
		}
		err = s.opts.Backend.SaveAttendance(ctx, req.Record)
	case remote.ActionSaveBatch:
		err = s.opts.Backend.SaveBatch(ctx, req.Records)
	case remote.ActionSaveAll:
		err = s.opts.Backend.SaveAll(ctx, req.SaveAllRequest)
	default:
		return s.reply(c, "unknown", http.StatusBadRequest, response{Status: "error", Message: "unknown action"})
	}
	if err != nil {
		return s.fail(c, req.Action, err)
	}
	return s.reply(c, req.Action, http.StatusOK, response{Status: "success"})
}

func (s *Server) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()
	if err := s.opts.Backend.Ping(ctx); err != nil {
		return c.String(http.StatusServiceUnavailable, "backend not ok: "+err.Error())
	}
	return c.String(http.StatusOK, "ok")
}

func (s *Server) fail(c echo.Context, action string, err error) error {
	s.log.Error("backend failed", zap.String("action", action), zap.Error(err))
	observability.CaptureErr(err)
	return s.reply(c, action, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
}

func (s *Server) reply(c echo.Context, action string, code int, body response) error {
	metrics.SheetRequests.WithLabelValues(action, strconv.Itoa(code)).Inc()
	return c.JSON(code, body)
}
