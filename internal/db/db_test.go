package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/unklstewy/flightpath/pkg/config"
)

// TestConnString tests connection string construction.
func TestConnString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.local",
		Port:     5433,
		Username: "pilot",
		Password: "secret",
		Database: "flightpath",
		SSLMode:  "require",
	}

	got := connString(cfg)
	for _, want := range []string{
		"host=db.local",
		"port=5433",
		"user=pilot",
		"password=secret",
		"dbname=flightpath",
		"sslmode=require",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in connection string, got %s", want, got)
		}
	}
}

// TestConnect tests database connection with various configurations.
func TestConnect(t *testing.T) {
	t.Run("Unreachable server returns an error", func(t *testing.T) {
		cfg := config.DatabaseConfig{
			Host:         "127.0.0.1",
			Port:         1,
			Username:     "testuser",
			Password:     "testpass",
			Database:     "testdb",
			SSLMode:      "disable",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		db, err := Connect(ctx, cfg)
		if err == nil {
			db.Close()
			t.Fatal("Expected connection error, got nil")
		}
		if !strings.Contains(err.Error(), "failed to ping database") {
			t.Errorf("Expected ping error, got: %v", err)
		}
	})
}

// TestHealthCheckNil tests that a missing connection is unhealthy.
func TestHealthCheckNil(t *testing.T) {
	if err := HealthCheck(context.Background(), nil); err == nil {
		t.Error("Expected error for nil database")
	}
}

// TestSchemaEmbedded tests that the journal schema ships with the binary.
func TestSchemaEmbedded(t *testing.T) {
	data, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		t.Fatalf("Failed to read embedded schema: %v", err)
	}
	for _, table := range []string{"journal_sessions", "telemetry_frames"} {
		if !strings.Contains(string(data), table) {
			t.Errorf("Expected table %s in schema", table)
		}
	}
}
