// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements session.Metrics on a Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	framesAccepted prometheus.Counter
	framesRejected *prometheus.CounterVec
	pointsEvicted  prometheus.Counter
	points         prometheus.Gauge
	frameDt        prometheus.Histogram
}

// New creates a collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		framesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightpath_frames_accepted_total",
			Help: "Telemetry frames parsed and integrated.",
		}),
		framesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightpath_frames_rejected_total",
				Help: "Telemetry lines discarded, by reason.",
			},
			[]string{"reason"},
		),
		pointsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightpath_points_evicted_total",
			Help: "Trajectory points dropped from the front of the window.",
		}),
		points: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightpath_trajectory_points",
			Help: "Points currently in the trajectory window.",
		}),
		frameDt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightpath_frame_dt_seconds",
			Help:    "Time step between consecutive telemetry frames.",
			Buckets: []float64{0, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		}),
	}

	c.registry.MustRegister(
		c.framesAccepted,
		c.framesRejected,
		c.pointsEvicted,
		c.points,
		c.frameDt,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// FrameAccepted records an integrated frame and its time step.
func (c *Collector) FrameAccepted(dt float64) {
	c.framesAccepted.Inc()
	c.frameDt.Observe(dt)
}

// FrameRejected records a discarded line.
func (c *Collector) FrameRejected(reason string) {
	c.framesRejected.WithLabelValues(reason).Inc()
}

// PointStored records the window size after a push.
func (c *Collector) PointStored(points int, evicted bool) {
	c.points.Set(float64(points))
	if evicted {
		c.pointsEvicted.Inc()
	}
}

// WatchQueue exports the transport's line counters. read and dropped are
// sampled at scrape time.
func (c *Collector) WatchQueue(read, dropped func() uint64) {
	c.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "flightpath_transport_lines_read_total",
			Help: "Complete lines read from the transport.",
		}, func() float64 { return float64(read()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "flightpath_transport_lines_dropped_total",
			Help: "Lines dropped because the tick loop fell behind.",
		}, func() float64 { return float64(dropped()) }),
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
