package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allbin/serialman/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series
var (
	RxBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serialman_rx_bytes_total",
		Help: "Total bytes read from the open serial port.",
	})
	RxChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serialman_rx_chunks_total",
		Help: "Total non-empty chunks delivered to the session handler.",
	})
	TxBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serialman_tx_bytes_total",
		Help: "Total bytes written to the open serial port.",
	})
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serialman_sessions_opened_total",
		Help: "Total sessions that reached the open state.",
	})
	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serialman_sessions_closed_total",
		Help: "Total sessions closed, by reason.",
	}, []string{"reason"})
	OpenFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serialman_open_failures_total",
		Help: "Total failed attempts to open a serial port.",
	})
	ControlLineSets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serialman_control_line_sets_total",
		Help: "Total DTR/RTS assertions forwarded to the device.",
	}, []string{"line"})
	SessionOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "serialman_session_open",
		Help: "1 while a session is open, 0 otherwise.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "serialman_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Close reason and control line label values
const (
	ReasonRequested  = "requested"
	ReasonDeviceGone = "device_gone"
	ReasonReadError  = "read_error"

	LineDTR = "dtr"
	LineRTS = "rts"
)

// StartHTTP serves /metrics and /ready on addr in the background.
func StartHTTP(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Handler returns the mux served by StartHTTP.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	return mux
}

// Local mirrors of the counters so the periodic logger can read them without scraping.
var (
	localRxBytes      uint64
	localRxChunks     uint64
	localTxBytes      uint64
	localOpened       uint64
	localClosed       uint64
	localOpenFailures uint64
	localLineSets     uint64
	localOpen         uint64
)

// Snapshot is a copy of the local counters.
type Snapshot struct {
	RxBytes      uint64
	RxChunks     uint64
	TxBytes      uint64
	Opened       uint64
	Closed       uint64 // sum across reasons
	OpenFailures uint64
	LineSets     uint64
	Open         bool
}

func Snap() Snapshot {
	return Snapshot{
		RxBytes:      atomic.LoadUint64(&localRxBytes),
		RxChunks:     atomic.LoadUint64(&localRxChunks),
		TxBytes:      atomic.LoadUint64(&localTxBytes),
		Opened:       atomic.LoadUint64(&localOpened),
		Closed:       atomic.LoadUint64(&localClosed),
		OpenFailures: atomic.LoadUint64(&localOpenFailures),
		LineSets:     atomic.LoadUint64(&localLineSets),
		Open:         atomic.LoadUint64(&localOpen) == 1,
	}
}

// AddRx records one delivered chunk of n bytes.
func AddRx(n int) {
	RxBytes.Add(float64(n))
	RxChunks.Inc()
	atomic.AddUint64(&localRxBytes, uint64(n))
	atomic.AddUint64(&localRxChunks, 1)
}

func AddTx(n int) {
	TxBytes.Add(float64(n))
	atomic.AddUint64(&localTxBytes, uint64(n))
}

func IncOpened() {
	SessionsOpened.Inc()
	SessionOpen.Set(1)
	atomic.AddUint64(&localOpened, 1)
	atomic.StoreUint64(&localOpen, 1)
}

func IncClosed(reason string) {
	SessionsClosed.WithLabelValues(reason).Inc()
	SessionOpen.Set(0)
	atomic.AddUint64(&localClosed, 1)
	atomic.StoreUint64(&localOpen, 0)
}

func IncOpenFailure() {
	OpenFailures.Inc()
	atomic.AddUint64(&localOpenFailures, 1)
}

func IncLineSet(line string) {
	ControlLineSets.WithLabelValues(line).Inc()
	atomic.AddUint64(&localLineSets, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register label series so the first close is not a registration.
	for _, r := range []string{ReasonRequested, ReasonDeviceGone, ReasonReadError} {
		SessionsClosed.WithLabelValues(r).Add(0)
	}
	for _, l := range []string{LineDTR, LineRTS} {
		ControlLineSets.WithLabelValues(l).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// StartLogger logs a Snapshot every interval until ctx is done.
func StartLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := Snap()
				l.Info("metrics_snapshot",
					"rx_bytes", snap.RxBytes,
					"rx_chunks", snap.RxChunks,
					"tx_bytes", snap.TxBytes,
					"sessions_opened", snap.Opened,
					"sessions_closed", snap.Closed,
					"open_failures", snap.OpenFailures,
					"session_open", snap.Open,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
