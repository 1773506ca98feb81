package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/flightpath/internal/station"
	"github.com/unklstewy/flightpath/pkg/config"
	"github.com/unklstewy/flightpath/pkg/transport"
)

type screen int

const (
	screenPicker screen = iota
	screenConnecting
	screenLive
)

type (
	portsMsg struct {
		ports []transport.PortInfo
		err   error
	}
	stationMsg struct {
		station *station.Station
		err     error
	}
	tickMsg time.Time
)

// openFunc opens a station for the configured source.
type openFunc func(ctx context.Context, cfg *config.Config) (*station.Station, error)

type model struct {
	cfg    *config.Config
	logger *slog.Logger

	keys   keyMap
	help   help.Model
	screen screen

	// port picker
	ports    []transport.PortInfo
	selected int

	station *station.Station
	state   station.SourceState
	err     error

	listPorts func() ([]transport.PortInfo, error)
	open      openFunc
}

func newModel(cfg *config.Config, logger *slog.Logger) model {
	m := model{
		cfg:       cfg,
		logger:    logger,
		help:      help.New(),
		listPorts: transport.ListPorts,
		open: func(ctx context.Context, cfg *config.Config) (*station.Station, error) {
			return station.Open(ctx, cfg, logger)
		},
	}
	if cfg.Serial.Port != "" || cfg.Replay.File != "" {
		m.screen = screenConnecting
	}
	m.keys = keys.forScreen(m.screen)
	return m
}

func (m model) Init() tea.Cmd {
	if m.screen == screenConnecting {
		return m.connect()
	}
	return m.scanPorts()
}

func (m model) scanPorts() tea.Cmd {
	list := m.listPorts
	return func() tea.Msg {
		ports, err := list()
		return portsMsg{ports: ports, err: err}
	}
}

// connect opens the station off the event loop; station.Open may wait on
// the journal database.
func (m model) connect() tea.Cmd {
	cfg := *m.cfg
	open := m.open
	return func() tea.Msg {
		st, err := open(context.Background(), &cfg)
		return stationMsg{station: st, err: err}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.Display.Interval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) setScreen(s screen) model {
	m.screen = s
	m.keys = keys.forScreen(s)
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		// any key dismisses an error
		if m.err != nil && m.screen != screenPicker {
			m.err = nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.ports)-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Rescan):
			return m, m.scanPorts()
		case key.Matches(msg, m.keys.Connect):
			if len(m.ports) == 0 {
				return m, nil
			}
			m.cfg.Serial.Port = m.ports[m.selected].Name
			m.err = nil
			m = m.setScreen(screenConnecting)
			return m, m.connect()
		case key.Matches(msg, m.keys.Clear):
			m.station.Session.ClearTrail()
		case key.Matches(msg, m.keys.Restart):
			m.station.Session.Restart()
		}

	case portsMsg:
		m.ports = msg.ports
		m.err = msg.err
		m.selected = preferredPort(msg.ports)

	case stationMsg:
		if msg.err != nil {
			m.logger.Error("failed to open telemetry source", slog.Any("error", msg.err))
			m.err = msg.err
			m = m.setScreen(screenPicker)
			return m, m.scanPorts()
		}
		m.station = msg.station
		m.state = station.SourceStreaming
		m = m.setScreen(screenLive)
		return m, m.tick()

	case tickMsg:
		if m.station == nil {
			return m, nil
		}
		m.station.Session.Drain(context.Background(), m.station.Source, m.cfg.Display.LinesPerTick)
		if state := m.station.State(); state != m.state {
			m.state = state
			m.logger.Info("telemetry source state changed",
				slog.String("source", m.station.SourceName),
				slog.String("state", state.String()))
			if state == station.SourceFailed {
				m.err = fmt.Errorf("%s: %w", m.station.SourceName, m.station.Source.Err())
			}
		}
		return m, m.tick()
	}

	return m, nil
}

// preferredPort returns the index of the first USB adapter, or 0.
func preferredPort(ports []transport.PortInfo) int {
	for i, p := range ports {
		if p.IsUSB {
			return i
		}
	}
	return 0
}
