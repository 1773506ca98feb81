// Package station assembles a running telemetry pipeline from configuration:
// the line source, the session, and the optional metrics endpoint and frame
// journal. Both terminal front ends start from here.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unklstewy/flightpath/internal/db"
	"github.com/unklstewy/flightpath/internal/metrics"
	"github.com/unklstewy/flightpath/pkg/config"
	"github.com/unklstewy/flightpath/pkg/session"
	"github.com/unklstewy/flightpath/pkg/transport"
)

// Source is a line source with a background reader.
type Source interface {
	transport.Source
	Done() <-chan struct{}
	Err() error
	Dropped() uint64
	LinesRead() uint64
	Pending() int
	Close() error
}

// SourceState describes the reader behind the source.
type SourceState int

const (
	SourceStreaming SourceState = iota
	SourceEnded
	SourceFailed
)

func (s SourceState) String() string {
	switch s {
	case SourceStreaming:
		return "streaming"
	case SourceEnded:
		return "ended"
	case SourceFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Station is a configured pipeline. Session and Source are used by the tick
// loop; the rest runs in the background.
type Station struct {
	Session    *session.Session
	Source     Source
	SourceName string

	// Metrics is nil when the endpoint is disabled
	Metrics *metrics.Collector

	// Journal is nil when journaling is disabled or the database is unreachable
	Journal *db.FrameJournal

	database *db.DB
	logger   *slog.Logger
	cancel   context.CancelFunc
}

// SessionConfig maps configuration onto session settings.
func SessionConfig(cfg *config.Config) (session.Config, error) {
	policy, err := cfg.Trajectory.Policy()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		MaxPoints:            cfg.Trajectory.MaxPoints,
		ConstantSpeed:        cfg.Trajectory.ConstantSpeed,
		DtPolicy:             policy,
		MinDt:                cfg.Trajectory.MinDt,
		RejectNonFinite:      cfg.Parser.RejectNonFinite,
		DiagnosticsPerSecond: cfg.Parser.DiagnosticsPerSecond,
	}, nil
}

// Open starts every configured component. Either cfg.Replay.File or
// cfg.Serial.Port must be set; the replay file wins when both are.
//
// Metrics and journal failures are logged and the station runs without
// them. Only a source that cannot be opened is an error.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Station, error) {
	sessCfg, err := SessionConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	st := &Station{logger: logger, cancel: cancel}

	if cfg.Metrics.Enabled {
		st.Metrics = metrics.New()
		sessCfg.Metrics = st.Metrics
		go func() {
			if err := st.Metrics.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
				logger.Error("metrics endpoint stopped", slog.Any("error", err))
			}
		}()
	}

	src, name, err := openSource(ctx, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	st.Source = src
	st.SourceName = name
	logger.Info("telemetry source open", slog.String("source", name))

	if st.Metrics != nil {
		st.Metrics.WatchQueue(src.LinesRead, src.Dropped)
	}

	if cfg.Journal.Enabled {
		if err := st.openJournal(ctx, cfg); err != nil {
			logger.Error("frame journal disabled", slog.Any("error", err))
		} else {
			sessCfg.Recorder = st.Journal
		}
	}

	sessCfg.Logger = logger.With(slog.String("component", "session"))
	st.Session = session.New(sessCfg)

	return st, nil
}

func openSource(ctx context.Context, cfg *config.Config) (Source, string, error) {
	if cfg.Replay.File != "" {
		src, err := transport.OpenReplay(ctx, cfg.Replay.File, cfg.Replay.Pace())
		if err != nil {
			return nil, "", err
		}
		return src, cfg.Replay.File, nil
	}

	if cfg.Serial.Port == "" {
		return nil, "", errors.New("no serial port or replay file configured")
	}
	src, err := transport.OpenSerial(ctx, transport.SerialConfig{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout(),
		QueueSize:   cfg.Serial.QueueSize,
	})
	if err != nil {
		return nil, "", err
	}
	return src, fmt.Sprintf("%s @ %d baud", cfg.Serial.Port, cfg.Serial.BaudRate), nil
}

func (st *Station) openJournal(ctx context.Context, cfg *config.Config) error {
	database, err := db.ReconnectWithRetry(ctx, cfg.Journal.Database, 3, time.Second, st.logger)
	if err != nil {
		return err
	}

	if err := database.InitSchema(ctx); err != nil {
		database.Close()
		return err
	}

	if stats, err := database.GetStats(ctx); err == nil {
		st.logger.Info("journal contents",
			slog.Int64("sessions", stats.Sessions),
			slog.Int64("frames", stats.Frames))
	}

	if cfg.Journal.RetentionHours > 0 {
		removed, err := database.PruneJournal(ctx, time.Duration(cfg.Journal.RetentionHours)*time.Hour)
		if err != nil {
			st.logger.Warn("journal pruning failed", slog.Any("error", err))
		} else if removed > 0 {
			st.logger.Info("journal pruned", slog.Int64("frames", removed))
		}
	}

	journal, err := db.OpenFrameJournal(ctx, database, st.SourceName, db.JournalOptions{
		BufferSize:    cfg.Journal.BufferSize,
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval(),
		Logger:        st.logger.With(slog.String("component", "journal")),
	})
	if err != nil {
		database.Close()
		return err
	}

	st.database = database
	st.Journal = journal
	st.logger.Info("frame journal enabled", slog.Int64("session_id", journal.SessionID()))
	return nil
}

// State reports whether the source is still delivering lines.
// A source whose reader has stopped is SourceEnded only once its buffered
// lines have been consumed.
func (st *Station) State() SourceState {
	select {
	case <-st.Source.Done():
	default:
		return SourceStreaming
	}
	if st.Source.Err() != nil {
		return SourceFailed
	}
	if st.Source.Pending() > 0 {
		return SourceStreaming
	}
	return SourceEnded
}

// Close stops the source, flushes the journal and stops the metrics endpoint.
func (st *Station) Close() error {
	var errs []error

	if st.Source != nil {
		errs = append(errs, st.Source.Close())
	}

	if st.Journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.HealthCheck(ctx, st.database); err != nil {
			st.logger.Warn("journal database unhealthy, pending frames may be lost", slog.Any("error", err))
		}
		errs = append(errs, st.Journal.Close(ctx))
		cancel()

		written, dropped, failed := st.Journal.Stats()
		st.logger.Info("frame journal closed",
			slog.Uint64("written", written),
			slog.Uint64("dropped", dropped),
			slog.Uint64("failed", failed))
	}
	if st.database != nil {
		errs = append(errs, st.database.Close())
	}

	st.cancel()
	return errors.Join(errs...)
}
