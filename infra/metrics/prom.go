package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwhlab/evdemand/core/aggregate"
	"github.com/kwhlab/evdemand/core/simulation"
)

// PromSink records per-country run outcomes as Prometheus metrics.
type PromSink struct {
	users    *prometheus.CounterVec
	sessions *prometheus.CounterVec
	unmet    *prometheus.CounterVec
	peakKW   *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewPromSink registers the simulation metrics on the provided registerer.
// If reg is nil, the default registerer is used. Already registered
// collectors are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		users: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evdemand_users_simulated_total",
			Help: "Number of users simulated per country",
		}, []string{"country"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evdemand_charging_sessions_total",
			Help: "Charging sessions by terminal state",
		}, []string{"country", "state"}),
		unmet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evdemand_unmet_demand_events_total",
			Help: "Driving timesteps clamped at empty battery",
		}, []string{"country"}),
		peakKW: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evdemand_charging_peak_kw",
			Help: "Peak aggregated charging power of the last run",
		}, []string{"country"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evdemand_run_duration_seconds",
			Help:    "Wall-clock duration of one country run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"country"}),
	}
	for _, c := range []prometheus.Collector{s.users, s.sessions, s.unmet, s.peakKW, s.duration} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

// RecordRun updates the metrics from one finished country run.
func (s *PromSink) RecordRun(res *simulation.RunResult) error {
	s.users.WithLabelValues(res.Country).Add(float64(len(res.Users)))
	for state, n := range res.SessionCounts() {
		s.sessions.WithLabelValues(res.Country, state.String()).Add(float64(n))
	}
	s.unmet.WithLabelValues(res.Country).Add(float64(res.UnmetCount()))
	peak, _ := aggregate.Peak(res.ChargingKW)
	s.peakKW.WithLabelValues(res.Country).Set(peak)
	s.duration.WithLabelValues(res.Country).Observe(res.Elapsed.Seconds())
	return nil
}

func (s *PromSink) Close() {}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address. The server runs until the provided context is canceled. A
// dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
