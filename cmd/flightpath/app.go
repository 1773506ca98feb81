package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/flightpath/internal/station"
	"github.com/unklstewy/flightpath/pkg/attitude"
	"github.com/unklstewy/flightpath/pkg/config"
	"github.com/unklstewy/flightpath/pkg/render"
	"github.com/unklstewy/flightpath/pkg/session"
	"github.com/unklstewy/flightpath/pkg/telemetry"
	"github.com/unklstewy/flightpath/pkg/tracking"
)

// zoomStep is the factor applied per +/- key press
const zoomStep = 1.2

// AppConfig holds the application dependencies
type AppConfig struct {
	Config  *config.Config
	Station *station.Station
	Logs    *LogManager
	Logger  *slog.Logger
}

// App is the live trajectory client.
//
// The session, camera and cached frame are only touched from the tview
// event goroutine: ticks are queued with QueueUpdateDraw and key handlers
// run there too, so the session keeps a single owner.
type App struct {
	config  *config.Config
	station *station.Station
	logger  *slog.Logger

	// UI components
	tviewApp   *tview.Application
	view       *TrajectoryView
	telemetry  *tview.TextView
	controls   *tview.TextView
	logs       *LogManager
	rootLayout *tview.Flex

	// View state
	camera    render.Camera
	frame     render.DrawableFrame
	paused    bool
	lastState station.SourceState

	ticker   *time.Ticker
	stopChan chan struct{}
}

// NewApp creates a new application instance
func NewApp(cfg *AppConfig) *App {
	app := &App{
		config:   cfg.Config,
		station:  cfg.Station,
		logger:   cfg.Logger,
		logs:     cfg.Logs,
		camera:   initialCamera(cfg.Config.Display),
		stopChan: make(chan struct{}),
	}

	app.setupUI()
	return app
}

func initialCamera(d config.DisplayConfig) render.Camera {
	return render.Camera{Azimuth: d.Azimuth, Elevation: d.Elevation, Zoom: 1.0}
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.view = NewTrajectoryView(a)
	a.createTelemetryPanel()
	a.createControlsPanel()
	a.createLayout()

	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// createTelemetryPanel creates the telemetry info panel
func (a *App) createTelemetryPanel() {
	a.telemetry = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.telemetry.SetBorder(true).SetTitle(" Telemetry ")
	a.updateTelemetry()
}

// createControlsPanel creates the controls/shortcuts panel
func (a *App) createControlsPanel() {
	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.controls.SetBorder(true).SetTitle(" Controls ")

	a.controls.SetText(`[yellow]CAMERA[-]
  [white]←/→[-]   Rotate
  [white]↑/↓[-]   Tilt
  [white]+/-[-]   Zoom
  [white]0[-]     Reset view

[yellow]TRAJECTORY[-]
  [white]c[-]     Clear trail
  [white]r[-]     Restart at origin
  [white]p[-]     Pause display

[yellow]CONTROL[-]
  [white]q/Esc[-] Quit`)
}

// createLayout places the trajectory view beside a sidebar
func (a *App) createLayout() {
	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.telemetry, 0, 5, false).
		AddItem(a.controls, 14, 0, false)

	if a.config.Display.ShowLogs && a.logs != nil {
		sidebar.AddItem(a.logs.GetView(), 0, 3, false)
	}

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.view, 0, 7, true).
		AddItem(sidebar, 44, 0, false)

	a.tviewApp.SetRoot(a.rootLayout, true)
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	key := event.Key()
	r := event.Rune()
	step := a.config.Display.RotateStep

	switch {
	case key == tcell.KeyEscape || r == 'q':
		a.Stop()
		return nil

	case key == tcell.KeyLeft:
		a.camera = a.camera.Rotate(-step)
	case key == tcell.KeyRight:
		a.camera = a.camera.Rotate(step)
	case key == tcell.KeyUp:
		a.camera = a.camera.Tilt(step)
	case key == tcell.KeyDown:
		a.camera = a.camera.Tilt(-step)

	case r == '+' || r == '=':
		a.camera = a.camera.Scaled(zoomStep)
	case r == '-':
		a.camera = a.camera.Scaled(1 / zoomStep)
	case r == '0':
		a.camera = initialCamera(a.config.Display)

	case r == 'c':
		a.station.Session.ClearTrail()
		a.frame = a.station.Session.Drawable()
	case r == 'r':
		a.station.Session.Restart()
		a.frame = a.station.Session.Drawable()
	case r == 'p':
		a.paused = !a.paused
		if !a.paused {
			a.frame = a.station.Session.Drawable()
		}
		a.logger.Info("display paused", slog.Bool("paused", a.paused))

	default:
		return event
	}

	a.updateTelemetry()
	return nil
}

// tick consumes buffered telemetry and refreshes the panels.
func (a *App) tick() {
	ctx := context.Background()
	a.station.Session.Drain(ctx, a.station.Source, a.config.Display.LinesPerTick)

	if !a.paused {
		a.frame = a.station.Session.Drawable()
	}

	if state := a.station.State(); state != a.lastState {
		a.lastState = state
		switch state {
		case station.SourceEnded:
			a.logger.Info("telemetry source ended", slog.String("source", a.station.SourceName))
		case station.SourceFailed:
			a.logger.Error("telemetry source failed",
				slog.String("source", a.station.SourceName),
				slog.Any("error", a.station.Source.Err()))
		}
	}

	a.updateTelemetry()
}

// updateTelemetry updates the telemetry panel content
func (a *App) updateTelemetry() {
	frame, ok := a.station.Session.LastFrame()
	a.telemetry.SetText(formatTelemetry(panelData{
		Frame:       frame,
		HasFrame:    ok,
		State:       a.station.Session.State(),
		Stats:       a.station.Session.Stats(),
		Drawable:    a.frame,
		Source:      a.station.SourceName,
		SourceState: a.lastState,
		Dropped:     a.station.Source.Dropped(),
		Camera:      a.camera,
		Paused:      a.paused,
	}))
}

// panelData is everything the telemetry panel shows.
type panelData struct {
	Frame       telemetry.Frame
	HasFrame    bool
	State       tracking.KinematicState
	Stats       session.Stats
	Drawable    render.DrawableFrame
	Source      string
	SourceState station.SourceState
	Dropped     uint64
	Camera      render.Camera
	Paused      bool
}

// formatTelemetry renders the telemetry panel text with tview color tags.
func formatTelemetry(d panelData) string {
	var b strings.Builder

	if d.HasFrame {
		f := d.Frame
		fmt.Fprintf(&b, "[yellow]MODE:[-] [white]%s[-]  [gray]T:[-] [white]%.2fs[-]\n\n", tview.Escape(f.Mode), f.Time)

		fmt.Fprintf(&b, "[gray]Roll: [-] [white]%+7.2f°[-] [blue]%s[-]\n", f.Roll, attitude.Bar(f.Roll, -attitude.RollLimit, attitude.RollLimit, attitude.BarWidth))
		fmt.Fprintf(&b, "[gray]Pitch:[-] [white]%+7.2f°[-] [blue]%s[-]\n", f.Pitch, attitude.Bar(f.Pitch, -attitude.PitchLimit, attitude.PitchLimit, attitude.BarWidth))
		fmt.Fprintf(&b, "[gray]Yaw:  [-] [white]%+7.2f°[-] [blue]%s[-]\n\n", f.Yaw, attitude.Bar(f.Yaw, -attitude.YawLimit, attitude.YawLimit, attitude.BarWidth))

		fmt.Fprintf(&b, "[yellow]RATES[-] [gray](°/s)[-]\n")
		fmt.Fprintf(&b, "  [gray]R[-] %+7.2f [gray]P[-] %+7.2f [gray]Y[-] %+7.2f\n", f.RollRate, f.PitchRate, f.YawRate)
		fmt.Fprintf(&b, "[yellow]ACCEL[-] [gray](m/s²)[-]\n")
		fmt.Fprintf(&b, "  [gray]X[-] %+7.2f [gray]Y[-] %+7.2f [gray]Z[-] %+7.2f\n\n", f.AccelX, f.AccelY, f.AccelZ)
	} else {
		b.WriteString("[gray]Waiting for telemetry...[-]\n\n")
	}

	p, v := d.State.Position, d.State.Velocity
	fmt.Fprintf(&b, "[yellow]POSITION[-] [gray](m)[-]\n")
	fmt.Fprintf(&b, "  [white]%8.2f %8.2f %8.2f[-]\n", p.X, p.Y, p.Z)
	fmt.Fprintf(&b, "[yellow]VELOCITY[-] [gray](m/s)[-]\n")
	fmt.Fprintf(&b, "  [white]%8.2f %8.2f %8.2f[-]\n", v.X, v.Y, v.Z)

	if !d.Drawable.Empty() {
		bn := d.Drawable.Bounds
		fmt.Fprintf(&b, "[gray]X[-] %.1f..%.1f [gray]Y[-] %.1f..%.1f [gray]Z[-] %.1f..%.1f\n",
			bn.X.Min, bn.X.Max, bn.Y.Min, bn.Y.Max, bn.Z.Min, bn.Z.Max)
	}
	b.WriteString("\n")

	stateColor := "green"
	switch d.SourceState {
	case station.SourceEnded:
		stateColor = "yellow"
	case station.SourceFailed:
		stateColor = "red"
	}
	fmt.Fprintf(&b, "[yellow]SOURCE:[-] [white]%s[-] [%s]%s[-]\n", tview.Escape(d.Source), stateColor, d.SourceState)

	s := d.Stats
	fmt.Fprintf(&b, "[gray]Frames:[-] [white]%d[-] [gray]Rejected:[-] [white]%d[-] [gray]Dropped:[-] [white]%d[-]\n",
		s.FramesAccepted, s.FramesRejected, d.Dropped)
	fmt.Fprintf(&b, "[gray]Points:[-] [white]%d[-] [gray]Evicted:[-] [white]%d[-]\n", s.Points, s.Evicted)

	fmt.Fprintf(&b, "[gray]View:[-] [white]az %.0f° el %.0f° %.1fx[-]", d.Camera.Azimuth, d.Camera.Elevation, d.Camera.Zoom)
	if d.Paused {
		b.WriteString(" [red]PAUSED[-]")
	}
	b.WriteString("\n")

	return b.String()
}

// Run starts the tick loop and the tview application
func (a *App) Run() error {
	a.ticker = time.NewTicker(a.config.Display.Interval())
	go a.tickLoop()

	a.logger.Info("trajectory client started",
		slog.String("source", a.station.SourceName),
		slog.Duration("tick", a.config.Display.Interval()))

	return a.tviewApp.Run()
}

// tickLoop queues one tick per timer period onto the event goroutine
func (a *App) tickLoop() {
	for {
		select {
		case <-a.ticker.C:
			a.tviewApp.QueueUpdateDraw(a.tick)
		case <-a.stopChan:
			return
		}
	}
}

// Stop stops the application
func (a *App) Stop() {
	a.logger.Info("shutting down")

	if a.ticker != nil {
		a.ticker.Stop()
	}
	close(a.stopChan)

	a.tviewApp.Stop()
}
