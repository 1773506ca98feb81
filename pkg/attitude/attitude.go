// Package attitude renders roll, pitch and yaw as terminal text: range bars
// and a small artificial horizon.
package attitude

import (
	"math"
	"strings"
)

// Display ranges and sizes used by the ground station.
const (
	RollLimit  = 45.0
	PitchLimit = 45.0
	YawLimit   = 180.0

	BarWidth = 20

	HorizonWidth  = 40
	HorizonHeight = 15
)

// Glyphs used in the rendered text.
const (
	BarFilled   = '█'
	BarEmpty    = '░'
	SkyGlyph    = '░'
	GroundGlyph = '▓'
	Aircraft    = '✈'
	Wing        = '─'
)

// Bar draws value within [min, max] as a bar of width cells. Values outside
// the range are clamped; NaN draws an empty bar.
func Bar(value, min, max float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if !math.IsNaN(value) && max > min {
		v := math.Max(min, math.Min(max, value))
		filled = int((v - min) / (max - min) * float64(width))
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(string(BarFilled), filled))
	b.WriteString(strings.Repeat(string(BarEmpty), width-filled))
	return b.String()
}

// Cell is one character of the horizon.
type Cell uint8

const (
	Sky Cell = iota
	Ground
	Marker
	Wingtip
)

// Rune returns the glyph for the cell.
func (c Cell) Rune() rune {
	switch c {
	case Ground:
		return GroundGlyph
	case Marker:
		return Aircraft
	case Wingtip:
		return Wing
	default:
		return SkyGlyph
	}
}

// HorizonGrid classifies every cell of a width x height horizon. Positive
// pitch raises the horizon line and roll tilts it about the center. The
// aircraft marker is drawn over the center row.
func HorizonGrid(roll, pitch float64, width, height int) [][]Cell {
	if width <= 0 || height <= 0 {
		return nil
	}
	cx, cy := width/2, height/2

	// truncated toward zero, so small pitches leave the horizon centered
	offset := int(pitch / 90.0 * (float64(height) / 2))
	sinR, cosR := math.Sincos(roll * math.Pi / 180)

	grid := make([][]Cell, height)
	for y := 0; y < height; y++ {
		row := make([]Cell, width)
		for x := 0; x < width; x++ {
			yr := float64(y - cy + offset)
			xr := float64(x - cx)
			if xr*sinR+yr*cosR < 0 {
				row[x] = Sky
			} else {
				row[x] = Ground
			}

			if y == cy && abs(x-cx) < 3 {
				if x == cx {
					row[x] = Marker
				} else {
					row[x] = Wingtip
				}
			}
		}
		grid[y] = row
	}
	return grid
}

// Horizon renders HorizonGrid as one string per row.
func Horizon(roll, pitch float64, width, height int) []string {
	grid := HorizonGrid(roll, pitch, width, height)
	lines := make([]string, len(grid))
	for i, row := range grid {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.Rune())
		}
		lines[i] = b.String()
	}
	return lines
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
