package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/flightpath/internal/logging"
	"github.com/unklstewy/flightpath/pkg/config"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/flightpath.json", "Path to configuration file")
	port := flag.String("port", "", "Serial port; skips the port picker")
	replay := flag.String("replay", "", "Replay a recorded telemetry log")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("groundstation version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *replay != "" {
		cfg.Replay.File = *replay
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// the terminal belongs to the UI, so records only go to the log file
	logger, err := logging.New(cfg.Logging, "groundstation", nil)
	if err != nil {
		log.Fatalf("Failed to start logging: %v", err)
	}
	defer logger.Close()

	// Start TUI
	p := tea.NewProgram(newModel(cfg, logger.Logger), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(model); ok && m.station != nil {
		if cerr := m.station.Close(); cerr != nil {
			logger.Error("station close", slog.Any("error", cerr))
		}
	}
	if err != nil {
		logger.Error("program error", slog.Any("error", err))
		logger.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
