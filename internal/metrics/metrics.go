package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// kind: batch|record|snapshot, result: ok|queued
	Pushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "sync_pushes_total", Help: "Remote pushes by kind and result",
	}, []string{"kind", "result"})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "attendance", Name: "sync_queue_depth", Help: "Items waiting in the sync queue",
	})
	Drains = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "sync_drains_total", Help: "Queue drain attempts",
	}, []string{"result"})
	DrainDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance", Name: "sync_drain_seconds", Help: "Queue drain latency",
		Buckets: prometheus.DefBuckets,
	})
	RemoteFetch = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance", Name: "remote_fetch_seconds", Help: "getData latency",
		Buckets: prometheus.DefBuckets,
	})
	Online = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "attendance", Name: "remote_online", Help: "1 when the remote store is reachable",
	})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "store_errors_total", Help: "Local store failures by kind",
	}, []string{"kind"})
	SheetRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheetstore", Name: "requests_total", Help: "Sheet store requests by action and code",
	}, []string{"action", "code"})
	StorePing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance", Name: "store_ping_seconds", Help: "Local store ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Pushes, QueueDepth, Drains, DrainDuration, RemoteFetch, Online, StoreErrors, SheetRequests, StorePing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveStorePing(d time.Duration) { StorePing.Observe(d.Seconds()) }

func SetOnline(online bool) {
	if online {
		Online.Set(1)
		return
	}
	Online.Set(0)
}
