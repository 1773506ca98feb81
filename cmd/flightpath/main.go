package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/unklstewy/flightpath/internal/logging"
	"github.com/unklstewy/flightpath/internal/station"
	"github.com/unklstewy/flightpath/pkg/config"
	"github.com/unklstewy/flightpath/pkg/transport"
)

const appName = "flightpath"

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/flightpath.json", "Path to configuration file")
	port := flag.String("port", "", "Serial port (overrides config)")
	baud := flag.Int("baud", 0, "Serial baud rate (overrides config)")
	replay := flag.String("replay", "", "Replay a recorded telemetry log instead of a serial port")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s (commit: %s)\n", appName, version, commit)
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(cfg, *port, *baud, *replay)

	if cfg.Serial.Port == "" && cfg.Replay.File == "" {
		ports, err := transport.ListPorts()
		if err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		name, err := pickPort(ports)
		if err != nil {
			log.Fatalf("No telemetry source: %v (use -port or -replay)", err)
		}
		fmt.Printf("Using serial port %s\n", name)
		cfg.Serial.Port = name
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The log pane mirrors the structured log when it is shown
	logManager := NewLogManager(200)
	var mirror io.Writer
	if cfg.Display.ShowLogs {
		mirror = logManager
	}

	logger, err := logging.New(cfg.Logging, appName, mirror)
	if err != nil {
		log.Fatalf("Failed to start logging: %v", err)
	}
	defer logger.Close()

	st, err := station.Open(context.Background(), cfg, logger.Logger)
	if err != nil {
		logger.Error("failed to open station", slog.Any("error", err))
		log.Fatalf("Failed to open telemetry source: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("station close", slog.Any("error", err))
		}
	}()

	// Create and run the application
	app := NewApp(&AppConfig{
		Config:  cfg,
		Station: st,
		Logs:    logManager,
		Logger:  logger.Logger,
	})

	if err := app.Run(); err != nil {
		logger.Error("application error", slog.Any("error", err))
		log.Printf("Application error: %v", err)
	}
}

// applyFlags copies non-empty command line overrides into cfg.
func applyFlags(cfg *config.Config, port string, baud int, replay string) {
	if port != "" {
		cfg.Serial.Port = port
	}
	if baud > 0 {
		cfg.Serial.BaudRate = baud
	}
	if replay != "" {
		cfg.Replay.File = replay
	}
}

// pickPort chooses a serial port when none is configured, preferring USB
// adapters.
func pickPort(ports []transport.PortInfo) (string, error) {
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	return ports[0].Name, nil
}

// printHelp prints usage information
func printHelp() {
	fmt.Println("flightpath - Live 3D flight path from serial telemetry")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  flightpath [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file (default: configs/flightpath.json)")
	fmt.Println("  -port string")
	fmt.Println("        Serial port, e.g. /dev/ttyUSB0 (default: first USB port found)")
	fmt.Println("  -baud int")
	fmt.Println("        Serial baud rate (default: 115200)")
	fmt.Println("  -replay string")
	fmt.Println("        Replay a recorded telemetry log")
	fmt.Println("  -version")
	fmt.Println("        Show version information")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("TELEMETRY FORMAT:")
	fmt.Println("  One frame per line, eleven pipe-separated fields:")
	fmt.Println("  time|roll|pitch|yaw|roll_rate|pitch_rate|yaw_rate|accel_x|accel_y|accel_z|mode")
	fmt.Println()
	fmt.Println("KEYBOARD SHORTCUTS:")
	fmt.Println("  ←/→            Rotate view")
	fmt.Println("  ↑/↓            Tilt view")
	fmt.Println("  +/-            Zoom in/out")
	fmt.Println("  0              Reset view")
	fmt.Println("  c              Clear trail")
	fmt.Println("  r              Restart at origin")
	fmt.Println("  p              Pause display")
	fmt.Println("  q or Esc       Quit application")
	fmt.Println()
	fmt.Println("ENVIRONMENT:")
	fmt.Println("  FLIGHTPATH_SERIAL_PORT, FLIGHTPATH_BAUD_RATE,")
	fmt.Println("  FLIGHTPATH_LOG_LEVEL, FLIGHTPATH_DB_PASSWORD")
}
