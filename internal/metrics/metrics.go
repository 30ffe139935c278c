// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/poller"
	"github.com/tamzrod/modbus-acquire/internal/published"
	"github.com/tamzrod/modbus-acquire/internal/sink"
)

const namespace = "acquire"

// Collector exports cycle statistics and published values.
// It is a poller.Observer and a sink.Sink.
type Collector struct {
	cycles       *prometheus.CounterVec
	duration     prometheus.Histogram
	reads        prometheus.Counter
	readFailures prometheus.Counter
	errors       *prometheus.CounterVec
	values       *prometheus.GaugeVec
	lastCycle    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by result (published, interrupted).",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of published poll cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Device reads issued.",
		}),
		readFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_failures_total",
			Help:      "Device reads that failed at the transport.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_errors_total",
			Help:      "Per-channel failures by stage (decode, transport, evaluate).",
		}, []string{"stage"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value",
			Help:      "Last published value per channel and math channel.",
		}, []string{"kind", "key", "name", "unit"}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_published_cycle",
			Help:      "Sequence number of the last published cycle.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.cycles, c.duration, c.reads, c.readFailures, c.errors, c.values, c.lastCycle,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveCycle implements poller.Observer.
func (c *Collector) ObserveCycle(cy poller.Cycle) {
	c.reads.Add(float64(cy.Reads))
	c.readFailures.Add(float64(cy.ReadFailures))
	for _, e := range cy.Errors {
		c.errors.WithLabelValues(string(e.Stage)).Inc()
	}

	if !cy.Published {
		c.cycles.WithLabelValues("interrupted").Inc()
		return
	}
	c.cycles.WithLabelValues("published").Inc()
	c.duration.Observe(cy.Duration.Seconds())
	c.lastCycle.Set(float64(cy.Seq))
}

// ---- sink.Sink ----

func (c *Collector) Name() string { return "metrics" }

// Consume replaces the value gauges with the snapshot's values, so
// removed channels disappear.
func (c *Collector) Consume(_ context.Context, snap *published.Snapshot) error {
	if snap == nil {
		return nil
	}
	c.values.Reset()
	for _, s := range sink.Samples(snap) {
		c.values.WithLabelValues(string(s.Kind), s.Key, s.Name, s.Unit).Set(s.Value)
	}
	return nil
}

func (c *Collector) Close() error { return nil }

// ---- HTTP ----

// Handler serves g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// Serve runs the metrics endpoint until ctx is done.
func Serve(ctx context.Context, listen string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", listen).Msg("metrics endpoint started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
