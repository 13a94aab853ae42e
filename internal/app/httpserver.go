package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/metrics"
)

// Pinger — локальное хранилище для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusFunc отдаёт содержимое /status (очередь, сводка).
type StatusFunc func(ctx context.Context) (any, error)

type HTTPServer struct {
	srv *http.Server
}

func NewMux(store Pinger, status StatusFunc) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "store not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	if status != nil {
		mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			v, err := status(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		})
	}

	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func StartHTTP(ctx context.Context, addr string, store Pinger, status StatusFunc, lg *zap.Logger) *HTTPServer {
	lg = logging.OrNop(lg)
	srv := &http.Server{Addr: addr, Handler: NewMux(store, status), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		// закрываем аккуратно при Shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("http server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	lg.Info("http listening", zap.String("addr", addr))
	return &HTTPServer{srv: srv}
}
