package transport

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate matches the flight computer firmware
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds each blocking read so cancellation is noticed
	DefaultReadTimeout = 100 * time.Millisecond
)

// SerialConfig describes the serial link to the flight computer.
type SerialConfig struct {
	// Port is the device path (e.g. "/dev/ttyUSB0", "COM3")
	Port string

	// BaudRate is the line speed (default 115200)
	BaudRate int

	// ReadTimeout bounds each read call (default 100ms)
	ReadTimeout time.Duration

	// QueueSize is the line buffer between reader and tick loop
	QueueSize int
}

// SerialSource reads telemetry lines from a serial port.
// When the tick loop falls behind, the newest lines are dropped rather than
// stalling the port.
type SerialSource struct {
	*LineQueue

	name   string
	port   serial.Port
	cancel context.CancelFunc
}

// OpenSerial opens the port and starts the reader goroutine.
func OpenSerial(ctx context.Context, cfg SerialConfig) (*SerialSource, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Port, err)
	}

	// Discard whatever the device sent before we were listening
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to reset input buffer on %s: %w", cfg.Port, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	src := &SerialSource{
		LineQueue: newLineQueue(cfg.QueueSize),
		name:      cfg.Port,
		port:      port,
		cancel:    cancel,
	}
	go src.pump(ctx, port, pumpOptions{})

	return src, nil
}

// Name returns the device path.
func (s *SerialSource) Name() string {
	return s.name
}

// Close stops the reader and closes the port.
func (s *SerialSource) Close() error {
	s.cancel()
	err := s.port.Close()
	<-s.Done()
	return err
}

// PortInfo describes an available serial port.
type PortInfo struct {
	Name        string
	Description string
	IsUSB       bool
}

// String formats the port the way the port picker lists it.
func (p PortInfo) String() string {
	if p.Description == "" {
		return p.Name
	}
	return fmt.Sprintf("%s - %s", p.Name, p.Description)
}

// ListPorts enumerates serial ports, with USB details where the platform
// provides them.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]PortInfo, 0, len(details))
		for _, d := range details {
			ports = append(ports, PortInfo{
				Name:        d.Name,
				Description: describe(d),
				IsUSB:       d.IsUSB,
			})
		}
		return ports, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(names))
	for _, n := range names {
		ports = append(ports, PortInfo{Name: n})
	}
	return ports, nil
}

func describe(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return ""
	}
	if d.Product != "" {
		return d.Product
	}
	return fmt.Sprintf("USB %s:%s", d.VID, d.PID)
}
