package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/flightpath/pkg/render"
)

const (
	pointGlyph   = '•'
	vehicleGlyph = '◉'
	edgeGlyph    = '·'
)

// TrajectoryView is a tview primitive that draws the trajectory as a
// colored 3D scatter inside its view box (see render.ViewBounds).
type TrajectoryView struct {
	*tview.Box
	app *App
}

// NewTrajectoryView creates the trajectory view.
func NewTrajectoryView(app *App) *TrajectoryView {
	tv := &TrajectoryView{
		Box: tview.NewBox(),
		app: app,
	}
	tv.SetBorder(true).SetTitle(" Flight Path ")
	return tv
}

// Draw renders the most recent drawable frame.
func (tv *TrajectoryView) Draw(screen tcell.Screen) {
	frame := tv.app.frame
	cam := tv.app.camera

	title := fmt.Sprintf(" Flight Path - %d points ", frame.Len())
	if tv.app.paused {
		title += "[PAUSED] "
	}
	tv.SetTitle(title)
	tv.Box.DrawForSubclass(screen, tv)

	x, y, width, height := tv.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	if frame.Empty() {
		msg := "Waiting for telemetry..."
		tview.Print(screen, msg, x, y+height/2, width, tview.AlignCenter, tcell.ColorGray)
		return
	}

	bounds := render.ViewBounds(frame)

	// wireframe first so the trajectory is drawn over it
	edgeStyle := tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	projected, placed := projectBox(bounds, cam, width, height)
	for _, e := range boxEdges() {
		if !placed[e[0]] || !placed[e[1]] {
			continue
		}
		a, b := projected[e[0]], projected[e[1]]
		bresenham(a.Col, a.Row, b.Col, b.Row, func(cx, cy int) {
			if cx >= 0 && cx < width && cy >= 0 && cy < height {
				screen.SetContent(x+cx, y+cy, edgeGlyph, nil, edgeStyle)
			}
		})
	}

	labelStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	for label, idx := range map[rune]int{'X': 1, 'Y': 2, 'Z': 4} {
		c := projected[idx]
		if placed[idx] && c.Col >= 0 && c.Col < width && c.Row >= 0 && c.Row < height {
			screen.SetContent(x+c.Col, y+c.Row, label, nil, labelStyle)
		}
	}

	for _, p := range projectFrame(frame, bounds, cam, width, height) {
		r, g, b := p.Color.RGB8()
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
		glyph := pointGlyph
		if p.Latest {
			glyph = vehicleGlyph
			style = style.Bold(true)
		}
		screen.SetContent(x+p.Col, y+p.Row, glyph, nil, style)
	}
}
