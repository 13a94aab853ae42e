package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(pinger{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewMux(pinger{err: errors.New("disk gone")}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz with broken store = %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	status := func(context.Context) (any, error) {
		return map[string]int{"queue": 2}, nil
	}
	rec := httptest.NewRecorder()
	NewMux(pinger{}, status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"queue":2}` {
		t.Fatalf("status body = %s", got)
	}

	rec = httptest.NewRecorder()
	NewMux(pinger{}, status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics code = %d", rec.Code)
	}
}
