package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/unklstewy/flightpath/internal/station"
	"github.com/unklstewy/flightpath/pkg/attitude"
	"github.com/unklstewy/flightpath/pkg/session"
	"github.com/unklstewy/flightpath/pkg/telemetry"
	"github.com/unklstewy/flightpath/pkg/tracking"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	skyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	groundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("130"))
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
)

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("FLIGHTPATH GROUND STATION"))
	s.WriteString("\n\n")

	switch m.screen {
	case screenPicker:
		s.WriteString(m.renderPicker())
	case screenConnecting:
		s.WriteString(hintStyle.Render(fmt.Sprintf("Connecting to %s...", m.sourceLabel())))
		s.WriteString("\n")
	case screenLive:
		s.WriteString(m.renderLive())
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errStyle.Render("ERROR: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func (m model) sourceLabel() string {
	if m.cfg.Replay.File != "" {
		return m.cfg.Replay.File
	}
	return m.cfg.Serial.Port
}

func (m model) renderPicker() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Select telemetry port"))
	s.WriteString("\n\n")

	if len(m.ports) == 0 {
		s.WriteString(hintStyle.Render("No serial ports found. Plug in the receiver and press s to rescan."))
		s.WriteString("\n")
		return s.String()
	}

	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	for i, p := range m.ports {
		line := "  " + p.String()
		if i == m.selected {
			line = selectedStyle.Render("▸ " + p.String())
		}
		s.WriteString(line)
		s.WriteString("\n")
	}
	return s.String()
}

func (m model) renderLive() string {
	sess := m.station.Session
	frame, ok := sess.LastFrame()

	var left string
	if ok {
		left = renderAttitude(frame)
	} else {
		left = hintStyle.Render("Waiting for telemetry...")
	}

	roll, pitch := 0.0, 0.0
	if ok {
		roll, pitch = frame.Roll, frame.Pitch
	}
	horizon := panelStyle.Render(renderHorizon(roll, pitch))

	top := lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(left), horizon)
	bottom := panelStyle.Render(renderStatus(sess.State(), sess.Stats(), m.station.SourceName, m.state, m.station.Source.Dropped()))
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func field(label, value string) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(value)
}

// renderAttitude shows the attitude bars and raw sensor values of f.
func renderAttitude(f telemetry.Frame) string {
	var s strings.Builder

	s.WriteString(field("MODE", f.Mode) + "  " + field("T", fmt.Sprintf("%.2fs", f.Time)))
	s.WriteString("\n\n")

	s.WriteString(headerStyle.Render("Attitude"))
	s.WriteString("\n")
	bars := []struct {
		name       string
		value, lim float64
	}{
		{"Roll ", f.Roll, attitude.RollLimit},
		{"Pitch", f.Pitch, attitude.PitchLimit},
		{"Yaw  ", f.Yaw, attitude.YawLimit},
	}
	for _, b := range bars {
		s.WriteString(labelStyle.Render(b.name))
		s.WriteString(" ")
		s.WriteString(valueStyle.Render(fmt.Sprintf("%+7.2f°", b.value)))
		s.WriteString(" ")
		s.WriteString(barStyle.Render(attitude.Bar(b.value, -b.lim, b.lim, attitude.BarWidth)))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(headerStyle.Render("Rates (°/s)"))
	s.WriteString("\n")
	s.WriteString(field("R", fmt.Sprintf("%+7.2f", f.RollRate)) + " " +
		field("P", fmt.Sprintf("%+7.2f", f.PitchRate)) + " " +
		field("Y", fmt.Sprintf("%+7.2f", f.YawRate)))
	s.WriteString("\n\n")

	s.WriteString(headerStyle.Render("Accel (m/s²)"))
	s.WriteString("\n")
	s.WriteString(field("X", fmt.Sprintf("%+7.2f", f.AccelX)) + " " +
		field("Y", fmt.Sprintf("%+7.2f", f.AccelY)) + " " +
		field("Z", fmt.Sprintf("%+7.2f", f.AccelZ)))

	return s.String()
}

// renderHorizon draws the artificial horizon with sky and ground colored.
func renderHorizon(roll, pitch float64) string {
	grid := attitude.HorizonGrid(roll, pitch, attitude.HorizonWidth, attitude.HorizonHeight)
	rows := make([]string, len(grid))
	for y, row := range grid {
		var b strings.Builder
		// consecutive cells of the same kind share one styled run
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x] == row[start] {
				continue
			}
			b.WriteString(cellStyle(row[start]).Render(runes(row[start:x])))
			start = x
		}
		rows[y] = b.String()
	}
	return strings.Join(rows, "\n")
}

func cellStyle(c attitude.Cell) lipgloss.Style {
	switch c {
	case attitude.Ground:
		return groundStyle
	case attitude.Marker, attitude.Wingtip:
		return markerStyle
	default:
		return skyStyle
	}
}

func runes(cells []attitude.Cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteRune(c.Rune())
	}
	return b.String()
}

// renderStatus shows the dead-reckoned state and pipeline counters.
func renderStatus(st tracking.KinematicState, stats session.Stats, source string, state station.SourceState, dropped uint64) string {
	var s strings.Builder

	p, v := st.Position, st.Velocity
	s.WriteString(field("Position", fmt.Sprintf("%8.2f %8.2f %8.2f m", p.X, p.Y, p.Z)))
	s.WriteString("\n")
	s.WriteString(field("Velocity", fmt.Sprintf("%8.2f %8.2f %8.2f m/s", v.X, v.Y, v.Z)))
	s.WriteString("\n\n")

	stateStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	switch state {
	case station.SourceEnded:
		stateStyle = stateStyle.Foreground(lipgloss.Color("226"))
	case station.SourceFailed:
		stateStyle = stateStyle.Foreground(lipgloss.Color("196"))
	}
	s.WriteString(field("Source", source) + " " + stateStyle.Render(state.String()))
	s.WriteString("\n")
	s.WriteString(field("Frames", humanize.Comma(int64(stats.FramesAccepted))) + "  " +
		field("Rejected", humanize.Comma(int64(stats.FramesRejected))) + "  " +
		field("Dropped", humanize.Comma(int64(dropped))) + "  " +
		field("Points", humanize.Comma(int64(stats.Points))))

	return s.String()
}
