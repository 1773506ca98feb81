package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unklstewy/flightpath/pkg/config"
)

// maxBackoff caps the delay between reconnection attempts.
const maxBackoff = 60 * time.Second

// ReconnectWithRetry attempts to connect to the database with exponential backoff.
//
// Parameters:
//   - cfg: Database configuration
//   - maxRetries: Maximum number of connection attempts (0 = until ctx is done)
//   - initialDelay: Initial wait time between retries
//
// Returns: Connected database or the last error once retries are exhausted
func ReconnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxRetries int, initialDelay time.Duration, logger *slog.Logger) (*DB, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		logger.Debug("database connection attempt", slog.Int("attempt", attempt))

		db, err := Connect(ctx, cfg)
		if err == nil {
			if attempt > 1 {
				logger.Info("database reconnected", slog.Int("attempts", attempt))
			}
			return db, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempt, err)
		}

		logger.Warn("database connection failed",
			slog.Any("error", err),
			slog.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay = nextBackoff(delay)
	}
}

// HealthCheck reports whether the database answers a trivial query.
func HealthCheck(ctx context.Context, db *DB) error {
	if db == nil {
		return fmt.Errorf("no database connection")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("health check returned %d", result)
	}
	return nil
}

// RetryPolicy controls WithRetry.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// Wait is the delay before the first retry; it grows linearly
	Wait time.Duration
}

// WithRetry executes a database operation, retrying only failures that
// look like a lost connection.
func WithRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, operation func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isConnError(err) {
			return err
		}

		if attempt < policy.MaxRetries {
			wait := time.Duration(attempt+1) * policy.Wait
			logger.Warn("database operation failed",
				slog.Int("attempt", attempt+1),
				slog.Int("of", policy.MaxRetries+1),
				slog.Any("error", err),
				slog.Duration("retry_in", wait))

			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(wait):
			}
		}
	}

	return lastErr
}

// connErrors are substrings of errors caused by a broken connection.
var connErrors = []string{
	"connection refused",
	"broken pipe",
	"no connection",
	"connection reset",
	"bad connection",
	"eof",
	"timeout",
}

func isConnError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range connErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
