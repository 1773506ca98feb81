// Package render turns trajectory history into something a display can draw.
//
// Everything here is a pure function of its input: no package state, no
// retained history. Sinks receive a DrawableFrame and must treat it as
// read-only.
package render

import (
	"math"

	"github.com/unklstewy/flightpath/pkg/trajectory"
)

// PaddingFraction is the share of an axis range added on each side by Pad.
const PaddingFraction = 0.1

// Vec3 is a drawable position.
type Vec3 struct {
	X, Y, Z float64
}

// RGBA is a color with components in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// RGB8 returns the color as 8-bit channels, ignoring alpha.
func (c RGBA) RGB8() (r, g, b uint8) {
	return channel(c.R), channel(c.G), channel(c.B)
}

func channel(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// DrawableFrame is one renderable view of the trajectory.
// Points and Colors are parallel slices in insertion order, oldest first.
type DrawableFrame struct {
	Points []Vec3
	Colors []RGBA

	// Bounds is the unpadded extent of Points; meaningless when Points is empty
	Bounds trajectory.Bounds
}

// Len returns the number of points in the frame.
func (f DrawableFrame) Len() int {
	return len(f.Points)
}

// Empty reports whether there is nothing to draw.
func (f DrawableFrame) Empty() bool {
	return len(f.Points) == 0
}

// ToDrawable maps a store snapshot to positions, colors and bounds.
//
// Color encodes insertion order, not wall-clock time: the oldest point in
// the snapshot is pure blue, the newest pure red, with weights normalized
// over the sequence range of the snapshot. A single point gets weight 0.
func ToDrawable(points []trajectory.Point) DrawableFrame {
	frame := DrawableFrame{
		Points: make([]Vec3, len(points)),
		Colors: make([]RGBA, len(points)),
	}
	if len(points) == 0 {
		return frame
	}

	seqMin, seqMax := points[0].Sequence, points[0].Sequence
	for _, p := range points[1:] {
		seqMin = min(seqMin, p.Sequence)
		seqMax = max(seqMax, p.Sequence)
	}

	frame.Bounds = trajectory.BoundsOf(points)

	span := float64(seqMax - seqMin)
	for i, p := range points {
		frame.Points[i] = Vec3{p.X, p.Y, p.Z}

		w := 0.0
		if len(points) > 1 && span > 0 {
			w = float64(p.Sequence-seqMin) / span
		}
		frame.Colors[i] = Weight(w)
	}

	return frame
}

// Weight returns the blue-to-red gradient color for w in [0, 1].
func Weight(w float64) RGBA {
	return RGBA{R: w, G: 0, B: 1 - w, A: 1}
}

// Pad widens each axis by PaddingFraction of its range on both sides, or by
// 1.0 when the range is zero, so a degenerate axis still has a visible span.
// Padded limits saturate at ±math.MaxFloat64; non-finite extents are
// returned unchanged.
func Pad(b trajectory.Bounds) trajectory.Bounds {
	return trajectory.Bounds{
		X: padExtent(b.X),
		Y: padExtent(b.Y),
		Z: padExtent(b.Z),
	}
}

func padExtent(e trajectory.Extent) trajectory.Extent {
	if !finite(e.Min) || !finite(e.Max) {
		return e
	}
	// scale before subtracting so huge spans do not overflow
	pad := e.Max*PaddingFraction - e.Min*PaddingFraction
	if pad == 0 {
		pad = 1
	}
	return trajectory.Extent{
		Min: math.Max(e.Min-pad, -math.MaxFloat64),
		Max: math.Min(e.Max+pad, math.MaxFloat64),
	}
}

// InitialPoints is how many points a frame may hold before the view box
// follows the trajectory instead of DefaultBounds.
const InitialPoints = 2

// DefaultBounds returns the fixed view box shown while the trajectory is
// still too short to frame: ±10 m horizontally and 0 to 20 m of altitude.
func DefaultBounds() trajectory.Bounds {
	return trajectory.Bounds{
		X: trajectory.Extent{Min: -10, Max: 10},
		Y: trajectory.Extent{Min: -10, Max: 10},
		Z: trajectory.Extent{Min: 0, Max: 20},
	}
}

// ViewBounds returns the box a sink should draw f in. Frames with at most
// InitialPoints points use DefaultBounds; longer ones use the padded frame
// bounds, falling back to the default extent on any axis with no usable
// range.
func ViewBounds(f DrawableFrame) trajectory.Bounds {
	def := DefaultBounds()
	if f.Len() <= InitialPoints {
		return def
	}
	b := Pad(f.Bounds)
	for _, ax := range []struct{ got, def *trajectory.Extent }{
		{&b.X, &def.X}, {&b.Y, &def.Y}, {&b.Z, &def.Z},
	} {
		if !finite(ax.got.Min) || !finite(ax.got.Max) {
			*ax.got = *ax.def
		}
	}
	return b
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
