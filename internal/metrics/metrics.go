package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const subsystem = "ledger"

// Prometheus metric names broken out for reuse.
const (
	EventsAppliedName       = "events_applied_total"
	EventsSkippedName       = "events_skipped_total"
	IntegrityViolationsName = "integrity_violations_total"
	BatchesCommittedName    = "batches_committed_total"
	MetadataFetchesName     = "metadata_fetches_total"
	LastBlockName           = "last_processed_block"
)

// Metadata fetch results.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
)

// Metrics holds the processing collectors. A nil *Metrics records nothing.
type Metrics struct {
	EventsApplied       *prometheus.CounterVec
	EventsSkipped       *prometheus.CounterVec
	IntegrityViolations prometheus.Counter
	BatchesCommitted    prometheus.Counter
	MetadataFetches     *prometheus.CounterVec
	LastBlock           prometheus.Gauge
}

// New builds the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      EventsAppliedName,
			Help:      "Events applied to the ledger, by event name.",
		}, []string{"event"}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      EventsSkippedName,
			Help:      "Events left out of the ledger, by reason.",
		}, []string{"reason"}),
		IntegrityViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      IntegrityViolationsName,
			Help:      "Events that referenced entities missing from the store.",
		}),
		BatchesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      BatchesCommittedName,
			Help:      "Write batches committed together with the replay cursor.",
		}),
		MetadataFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      MetadataFetchesName,
			Help:      "Account metadata documents fetched, by result.",
		}, []string{"result"}),
		LastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      LastBlockName,
			Help:      "Block number of the last committed event.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.EventsApplied,
			m.EventsSkipped,
			m.IntegrityViolations,
			m.BatchesCommitted,
			m.MetadataFetches,
			m.LastBlock,
		)
	}
	return m
}

func (m *Metrics) Applied(event string) {
	if m != nil {
		m.EventsApplied.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) Skipped(reason string) {
	if m != nil {
		m.EventsSkipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IntegrityViolation() {
	if m != nil {
		m.IntegrityViolations.Inc()
	}
}

// Committed records a committed batch ending at block.
func (m *Metrics) Committed(block uint64) {
	if m != nil {
		m.BatchesCommitted.Inc()
		m.LastBlock.Set(float64(block))
	}
}

func (m *Metrics) MetadataFetched(result string) {
	if m != nil {
		m.MetadataFetches.WithLabelValues(result).Inc()
	}
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics serving", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
