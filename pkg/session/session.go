// Package session wires the parser, integrator and trajectory store into
// the per-tick pipeline: one raw line in, at most one trajectory point out.
//
// A Session is owned by exactly one goroutine (the tick loop). It holds the
// only KinematicState and Store for the run and is not safe for concurrent
// use; front ends hand DrawableFrame values to their draw code instead of
// sharing the session.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/unklstewy/flightpath/pkg/render"
	"github.com/unklstewy/flightpath/pkg/telemetry"
	"github.com/unklstewy/flightpath/pkg/tracking"
	"github.com/unklstewy/flightpath/pkg/trajectory"
	"github.com/unklstewy/flightpath/pkg/transport"
)

// DefaultDiagnosticsPerSecond bounds how often discarded lines are logged.
const DefaultDiagnosticsPerSecond = 2.0

// Recorder receives every accepted frame, e.g. a frame journal.
// Record errors are logged and never stop the pipeline.
type Recorder interface {
	Record(ctx context.Context, frame telemetry.Frame) error
}

// Metrics observes pipeline events.
type Metrics interface {
	FrameAccepted(dt float64)
	FrameRejected(reason string)
	PointStored(points int, evicted bool)
}

// Config holds the session settings.
type Config struct {
	// MaxPoints is the trajectory store capacity (default 1000)
	MaxPoints int

	// ConstantSpeed is the assumed forward speed in m/s (default 1.0)
	ConstantSpeed float64

	// DtPolicy handles repeated or decreasing timestamps (default raw)
	DtPolicy tracking.DtPolicy

	// MinDt is the floor used by the clamp policy, in seconds
	MinDt float64

	// RejectNonFinite discards frames carrying NaN or Inf
	RejectNonFinite bool

	// DiagnosticsPerSecond limits discard log entries; 0 selects the default,
	// a negative value disables them
	DiagnosticsPerSecond float64

	Logger   *slog.Logger
	Metrics  Metrics
	Recorder Recorder
}

// Stats counts what the session has seen.
type Stats struct {
	LinesRead      uint64
	FramesAccepted uint64
	FramesRejected uint64
	RejectedByKind map[telemetry.ErrorKind]uint64
	RecordErrors   uint64
	Points         int
	Evicted        uint64
}

// Session is the tick pipeline state.
type Session struct {
	parser     telemetry.Parser
	integrator *tracking.Integrator
	state      *tracking.KinematicState
	store      *trajectory.Store

	lastFrame telemetry.Frame
	hasFrame  bool

	stats      Stats
	suppressed uint64

	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  Metrics
	recorder Recorder
}

// New creates a session with an empty trajectory at the origin.
func New(cfg Config) *Session {
	if cfg.ConstantSpeed == 0 {
		cfg.ConstantSpeed = tracking.DefaultSpeed
	}
	if cfg.DiagnosticsPerSecond == 0 {
		cfg.DiagnosticsPerSecond = DefaultDiagnosticsPerSecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.DiagnosticsPerSecond), 1)
	if cfg.DiagnosticsPerSecond < 0 {
		limiter = rate.NewLimiter(0, 0)
	}

	return &Session{
		parser: telemetry.Parser{RejectNonFinite: cfg.RejectNonFinite},
		integrator: &tracking.Integrator{
			Speed:  cfg.ConstantSpeed,
			Policy: cfg.DtPolicy,
			MinDt:  cfg.MinDt,
		},
		state:    tracking.NewKinematicState(),
		store:    trajectory.New(cfg.MaxPoints),
		stats:    Stats{RejectedByKind: make(map[telemetry.ErrorKind]uint64)},
		limiter:  limiter,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		recorder: cfg.Recorder,
	}
}

// Tick runs one line through the pipeline.
//
// A line that fails to parse is discarded: the returned error is the
// *telemetry.ParseError, the state and store are untouched, and a
// rate-limited diagnostic is logged. The caller should carry on with the
// next line.
func (s *Session) Tick(ctx context.Context, line string) (trajectory.Point, error) {
	s.stats.LinesRead++

	frame, err := s.parser.Parse(line)
	if err != nil {
		s.reject(line, err)
		return trajectory.Point{}, err
	}

	dt := tracking.Dt(frame, s.state)
	pos := s.integrator.Advance(frame, s.state)

	evictedBefore := s.store.Evicted()
	p := s.store.Push(pos.X, pos.Y, pos.Z)

	s.lastFrame = frame
	s.hasFrame = true
	s.stats.FramesAccepted++

	s.metrics.FrameAccepted(dt)
	s.metrics.PointStored(s.store.Len(), s.store.Evicted() != evictedBefore)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, frame); err != nil {
			s.stats.RecordErrors++
			if s.limiter.Allow() {
				s.logger.Warn("frame journal write failed", slog.Any("error", err))
			}
		}
	}

	return p, nil
}

// Poll reads at most one line from src without blocking and runs it through
// Tick. It reports whether a line was available; when none was, nothing is
// mutated. The error is the line's parse error, if any.
func (s *Session) Poll(ctx context.Context, src transport.Source) (bool, error) {
	line, ok := src.TryReadLine()
	if !ok {
		return false, nil
	}
	_, err := s.Tick(ctx, line)
	return true, err
}

// Drain polls src until it has no buffered line or limit lines were
// handled, and returns the number of lines consumed. Parse errors are
// absorbed (they are counted and logged by Tick).
func (s *Session) Drain(ctx context.Context, src transport.Source, limit int) int {
	n := 0
	for n < limit {
		ok, _ := s.Poll(ctx, src)
		if !ok {
			break
		}
		n++
	}
	return n
}

// Drawable renders the current trajectory window.
func (s *Session) Drawable() render.DrawableFrame {
	return render.ToDrawable(s.store.Snapshot())
}

// LastFrame returns the most recently accepted frame.
func (s *Session) LastFrame() (telemetry.Frame, bool) {
	return s.lastFrame, s.hasFrame
}

// State returns a copy of the kinematic state.
func (s *Session) State() tracking.KinematicState {
	st := *s.state
	if st.LastTime != nil {
		t := *st.LastTime
		st.LastTime = &t
	}
	return st
}

// Stats returns a copy of the counters.
func (s *Session) Stats() Stats {
	st := s.stats
	st.RejectedByKind = make(map[telemetry.ErrorKind]uint64, len(s.stats.RejectedByKind))
	for k, v := range s.stats.RejectedByKind {
		st.RejectedByKind[k] = v
	}
	st.Points = s.store.Len()
	st.Evicted = s.store.Evicted()
	return st
}

// ClearTrail empties the trajectory window. Position and timing continue,
// so the next point is drawn where the vehicle is now.
func (s *Session) ClearTrail() {
	s.store.Reset()
	s.logger.Info("trajectory cleared")
}

// Restart returns the vehicle to the origin and empties the trail.
func (s *Session) Restart() {
	s.state.Reset()
	s.store.Reset()
	s.hasFrame = false
	s.logger.Info("session restarted")
}

func (s *Session) reject(line string, err error) {
	kind := telemetry.KindOf(err)
	s.stats.FramesRejected++
	s.stats.RejectedByKind[kind]++
	s.metrics.FrameRejected(kind.String())

	if !s.limiter.Allow() {
		s.suppressed++
		return
	}

	attrs := []any{
		slog.String("reason", kind.String()),
		slog.String("line", truncate(line, 120)),
		slog.Any("error", err),
	}
	if s.suppressed > 0 {
		attrs = append(attrs, slog.Uint64("suppressed", s.suppressed))
		s.suppressed = 0
	}
	s.logger.Warn("discarding telemetry line", attrs...)
}

// truncate keeps at most n bytes of s, backing off to a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s…(%d bytes)", s[:cut], len(s))
}

type noopMetrics struct{}

func (noopMetrics) FrameAccepted(float64) {}
func (noopMetrics) FrameRejected(string)  {}
func (noopMetrics) PointStored(int, bool) {}
