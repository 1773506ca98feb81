package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/unklstewy/flightpath/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// connString builds the lib/pq key/value connection string.
func connString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open("postgres", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     sqlDB,
		config: cfg,
	}, nil
}

// InitSchema creates the journal tables if they do not exist.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// PruneJournal deletes frames received before now-maxAge, and sessions left
// without frames. It returns the number of frames removed.
func (db *DB) PruneJournal(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	res, err := db.ExecContext(ctx,
		`DELETE FROM telemetry_frames WHERE received_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old frames: %w", err)
	}
	removed, _ := res.RowsAffected()

	_, err = db.ExecContext(ctx,
		`DELETE FROM journal_sessions s
		 WHERE s.started_at < $1
		   AND NOT EXISTS (SELECT 1 FROM telemetry_frames f WHERE f.session_id = s.id)`,
		cutoff,
	)
	if err != nil {
		return removed, fmt.Errorf("failed to delete empty sessions: %w", err)
	}

	return removed, nil
}

// JournalStats summarizes the journal contents.
type JournalStats struct {
	Sessions     int64
	Frames       int64
	LastReceived *time.Time
}

// GetStats returns journal statistics.
func (db *DB) GetStats(ctx context.Context) (JournalStats, error) {
	var stats JournalStats

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal_sessions`,
	).Scan(&stats.Sessions)
	if err != nil {
		return stats, fmt.Errorf("failed to count sessions: %w", err)
	}

	var last sql.NullTime
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(received_at) FROM telemetry_frames`,
	).Scan(&stats.Frames, &last)
	if err != nil {
		return stats, fmt.Errorf("failed to count frames: %w", err)
	}
	if last.Valid {
		stats.LastReceived = &last.Time
	}

	return stats, nil
}
