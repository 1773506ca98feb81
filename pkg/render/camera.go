package render

import (
	"math"

	"github.com/unklstewy/flightpath/pkg/trajectory"
)

// Default view angles, matching the usual 3D scatter plot orientation.
const (
	DefaultAzimuth   = -60.0
	DefaultElevation = 30.0
)

// Camera is an orthographic view onto the padded trajectory box.
type Camera struct {
	// Azimuth is the rotation about +Z in degrees
	Azimuth float64

	// Elevation is the angle above the XY plane in degrees, clamped to ±90
	Elevation float64

	// Zoom scales the projected image; 1.0 fits the box in the viewport
	Zoom float64
}

// DefaultCamera returns the standard oblique view.
func DefaultCamera() Camera {
	return Camera{Azimuth: DefaultAzimuth, Elevation: DefaultElevation, Zoom: 1.0}
}

// Rotate turns the camera about +Z, keeping the azimuth in (-180, 180].
func (c Camera) Rotate(deg float64) Camera {
	az := math.Mod(c.Azimuth+deg, 360)
	if az > 180 {
		az -= 360
	} else if az <= -180 {
		az += 360
	}
	c.Azimuth = az
	return c
}

// Tilt changes the elevation, clamped to ±90 degrees.
func (c Camera) Tilt(deg float64) Camera {
	c.Elevation = math.Max(-90, math.Min(90, c.Elevation+deg))
	return c
}

// Scaled multiplies the zoom, clamped to [0.25, 8].
func (c Camera) Scaled(f float64) Camera {
	c.Zoom = math.Max(0.25, math.Min(8, c.Zoom*f))
	return c
}

// Cell is a projected point in terminal cell coordinates.
type Cell struct {
	Col, Row int

	// Depth grows toward the viewer; draw larger depths last
	Depth float64
}

// Project maps p, inside the given (already padded) bounds, to a cell in a
// width x height viewport. Terminal cells are about twice as tall as they
// are wide, so the horizontal axis is stretched by two. ok is false when
// the cell falls outside the viewport or cannot be placed at all.
func (c Camera) Project(p Vec3, b trajectory.Bounds, width, height int) (cell Cell, ok bool) {
	cell, ok = c.Place(p, b, width, height)
	if !ok {
		return Cell{}, false
	}
	return cell, cell.Col >= 0 && cell.Col < width && cell.Row >= 0 && cell.Row < height
}

// maxOffset bounds how far from the viewport center Place will put a cell.
const maxOffset = 1 << 20

// Place is Project without the viewport test: the returned cell may lie
// outside the viewport. ok is false for an empty viewport, for NaN or
// infinite input, and for cells further than maxOffset from the center.
func (c Camera) Place(p Vec3, b trajectory.Bounds, width, height int) (cell Cell, ok bool) {
	if width <= 0 || height <= 0 {
		return Cell{}, false
	}

	// normalize into the unit cube centered on the origin
	x := normalize(p.X, b.X)
	y := normalize(p.Y, b.Y)
	z := normalize(p.Z, b.Z)

	az := c.Azimuth * math.Pi / 180
	el := c.Elevation * math.Pi / 180
	sinAz, cosAz := math.Sincos(az)
	sinEl, cosEl := math.Sincos(el)

	u := -x*sinAz + y*cosAz
	v := -x*cosAz*sinEl - y*sinAz*sinEl + z*cosEl
	d := x*cosAz*cosEl + y*sinAz*cosEl + z*sinEl

	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	// the unit cube's projection never exceeds sqrt(3)/2 from center
	scale := float64(max(min(width/2, height)-1, 1)) / math.Sqrt(3) * zoom

	du := math.Round(u * scale * 2)
	dv := math.Round(v * scale)
	if !(math.Abs(du) <= maxOffset && math.Abs(dv) <= maxOffset) {
		return Cell{}, false
	}
	return Cell{Col: width/2 + int(du), Row: height/2 - int(dv), Depth: d}, true
}

// normalize maps v to its offset from the middle of e, in units of the span.
// Halving first keeps the arithmetic finite for extents near ±MaxFloat64.
func normalize(v float64, e trajectory.Extent) float64 {
	span := e.Max/2 - e.Min/2
	if span == 0 {
		return 0
	}
	return (v/2-e.Min/2)/span - 0.5
}
