package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/flightpath/pkg/trajectory"
)

func TestToDrawable(t *testing.T) {
	t.Run("Empty snapshot", func(t *testing.T) {
		f := ToDrawable(nil)
		assert.True(t, f.Empty())
		assert.Equal(t, 0, f.Len())
		assert.Empty(t, f.Colors)
	})

	t.Run("Single point gets weight zero", func(t *testing.T) {
		f := ToDrawable([]trajectory.Point{{X: 1, Y: 2, Z: 3, Sequence: 42}})
		require.Equal(t, 1, f.Len())
		assert.Equal(t, RGBA{0, 0, 1, 1}, f.Colors[0])
		assert.Equal(t, Vec3{1, 2, 3}, f.Points[0])
		assert.Equal(t, trajectory.Extent{Min: 1, Max: 1}, f.Bounds.X)
	})

	t.Run("Two points span blue to red", func(t *testing.T) {
		f := ToDrawable([]trajectory.Point{
			{X: 0, Sequence: 5},
			{X: 10, Sequence: 15},
		})
		require.Len(t, f.Colors, 2)
		assert.Equal(t, RGBA{R: 0, G: 0, B: 1, A: 1}, f.Colors[0])
		assert.Equal(t, RGBA{R: 1, G: 0, B: 0, A: 1}, f.Colors[1])
		assert.Equal(t, trajectory.Extent{Min: 0, Max: 10}, f.Bounds.X)
	})

	t.Run("Weights follow sequence, not position in slice", func(t *testing.T) {
		f := ToDrawable([]trajectory.Point{
			{Sequence: 100},
			{Sequence: 150},
			{Sequence: 200},
		})
		assert.InDelta(t, 0.5, f.Colors[1].R, 1e-12)
		assert.InDelta(t, 0.5, f.Colors[1].B, 1e-12)
		for _, c := range f.Colors {
			assert.Equal(t, 0.0, c.G)
			assert.Equal(t, 1.0, c.A)
			assert.InDelta(t, 1.0, c.R+c.B, 1e-12)
		}
	})

	t.Run("Input is not modified", func(t *testing.T) {
		in := []trajectory.Point{{X: 1, Sequence: 1}, {X: 2, Sequence: 2}}
		cp := append([]trajectory.Point(nil), in...)
		ToDrawable(in)
		assert.Equal(t, cp, in)
	})

	t.Run("Bounds agree with the store", func(t *testing.T) {
		s := trajectory.New(5)
		for i := 0; i < 12; i++ {
			s.Push(float64(i%4), float64(-i), float64(i*i%7))
		}
		want, ok := s.AxisBounds()
		require.True(t, ok)
		assert.Equal(t, want, ToDrawable(s.Snapshot()).Bounds)
	})
}

func TestPad(t *testing.T) {
	b := Pad(trajectory.Bounds{
		X: trajectory.Extent{Min: 0, Max: 10},
		Y: trajectory.Extent{Min: 5, Max: 5},
		Z: trajectory.Extent{Min: -2, Max: 2},
	})

	assert.InDelta(t, -1.0, b.X.Min, 1e-12)
	assert.InDelta(t, 11.0, b.X.Max, 1e-12)
	assert.Equal(t, trajectory.Extent{Min: 4, Max: 6}, b.Y)
	assert.InDelta(t, -2.4, b.Z.Min, 1e-12)
	assert.InDelta(t, 2.4, b.Z.Max, 1e-12)
}

func TestPadSaturates(t *testing.T) {
	huge := Pad(trajectory.Bounds{
		X: trajectory.Extent{Min: -1.7e308, Max: 1.7e308},
		Y: trajectory.Extent{Min: 0, Max: 1.7e308},
		Z: trajectory.Extent{Min: 1, Max: 1},
	})
	assert.Equal(t, -math.MaxFloat64, huge.X.Min)
	assert.Equal(t, math.MaxFloat64, huge.X.Max)
	assert.InDelta(t, -1.7e307, huge.Y.Min, 1e293)
	assert.Equal(t, math.MaxFloat64, huge.Y.Max)
	assert.Equal(t, trajectory.Extent{Min: 0, Max: 2}, huge.Z)

	inf := trajectory.Extent{Min: math.Inf(-1), Max: 3}
	assert.Equal(t, inf, Pad(trajectory.Bounds{X: inf}).X)
}

func TestViewBounds(t *testing.T) {
	points := []trajectory.Point{
		{Sequence: 0, X: 100, Y: 100, Z: 100},
		{Sequence: 1, X: 110, Y: 100, Z: 100},
	}

	t.Run("Short trajectories use the default box", func(t *testing.T) {
		assert.Equal(t, DefaultBounds(), ViewBounds(DrawableFrame{}))
		assert.Equal(t, DefaultBounds(), ViewBounds(ToDrawable(points)))
	})

	t.Run("Longer trajectories use padded bounds", func(t *testing.T) {
		frame := ToDrawable(append(points, trajectory.Point{Sequence: 2, X: 120, Y: 100, Z: 100}))
		b := ViewBounds(frame)
		assert.Equal(t, Pad(frame.Bounds), b)
		assert.InDelta(t, 98.0, b.X.Min, 1e-9)
	})

	t.Run("Axis without a range falls back to the default", func(t *testing.T) {
		nan := math.NaN()
		frame := ToDrawable([]trajectory.Point{
			{Sequence: 0, X: 1, Y: nan}, {Sequence: 1, X: 2, Y: nan}, {Sequence: 2, X: 3, Y: nan},
		})
		b := ViewBounds(frame)
		assert.Equal(t, DefaultBounds().Y, b.Y)
		assert.InDelta(t, 0.8, b.X.Min, 1e-9)
	})
}

func TestRGB8(t *testing.T) {
	r, g, b := RGBA{R: 1, G: 0, B: 0.5, A: 1}.RGB8()
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(0), g)
	assert.Equal(t, uint8(128), b)

	r, _, b = RGBA{R: -1, B: 2}.RGB8()
	assert.Equal(t, uint8(0), r)
	assert.Equal(t, uint8(255), b)
}

func TestCamera(t *testing.T) {
	bounds := trajectory.Bounds{
		X: trajectory.Extent{Min: -10, Max: 10},
		Y: trajectory.Extent{Min: -10, Max: 10},
		Z: trajectory.Extent{Min: -10, Max: 10},
	}

	t.Run("Box center projects to viewport center", func(t *testing.T) {
		cell, ok := DefaultCamera().Project(Vec3{}, bounds, 80, 40)
		require.True(t, ok)
		assert.Equal(t, 40, cell.Col)
		assert.Equal(t, 20, cell.Row)
	})

	t.Run("Box corners stay inside the viewport at zoom 1", func(t *testing.T) {
		cam := DefaultCamera()
		for _, x := range []float64{-10, 10} {
			for _, y := range []float64{-10, 10} {
				for _, z := range []float64{-10, 10} {
					_, ok := cam.Project(Vec3{x, y, z}, bounds, 80, 40)
					assert.True(t, ok, "corner (%v,%v,%v)", x, y, z)
				}
			}
		}
	})

	t.Run("Top view puts +Y up the screen", func(t *testing.T) {
		cam := Camera{Azimuth: -90, Elevation: 90, Zoom: 1}
		up, ok := cam.Project(Vec3{0, 10, 0}, bounds, 80, 40)
		require.True(t, ok)
		assert.Equal(t, 40, up.Col)
		assert.Less(t, up.Row, 20)
	})

	t.Run("Degenerate viewport", func(t *testing.T) {
		_, ok := DefaultCamera().Project(Vec3{}, bounds, 0, 10)
		assert.False(t, ok)
	})

	t.Run("Extreme bounds still project", func(t *testing.T) {
		huge := trajectory.Bounds{
			X: trajectory.Extent{Min: -math.MaxFloat64, Max: math.MaxFloat64},
			Y: trajectory.Extent{Min: -1, Max: 1},
			Z: trajectory.Extent{Min: -1, Max: 1},
		}
		cell, ok := DefaultCamera().Project(Vec3{X: math.MaxFloat64}, huge, 80, 40)
		require.True(t, ok)
		assert.Less(t, cell.Col, 80)
	})

	t.Run("Non-finite input is not placed", func(t *testing.T) {
		for _, p := range []Vec3{{X: math.NaN()}, {Y: math.Inf(1)}} {
			cell, ok := DefaultCamera().Place(p, bounds, 80, 40)
			assert.False(t, ok)
			assert.Equal(t, Cell{}, cell)
		}
		open := bounds
		open.Z = trajectory.Extent{Min: math.Inf(-1), Max: math.Inf(1)}
		_, ok := DefaultCamera().Project(Vec3{}, open, 80, 40)
		assert.False(t, ok)
	})

	t.Run("Place reports off-screen cells", func(t *testing.T) {
		cam := DefaultCamera().Scaled(8)
		cell, ok := cam.Place(Vec3{10, 10, 10}, bounds, 20, 10)
		require.True(t, ok)
		_, visible := cam.Project(Vec3{10, 10, 10}, bounds, 20, 10)
		assert.False(t, visible)
		assert.True(t, cell.Col < 0 || cell.Col >= 20 || cell.Row < 0 || cell.Row >= 10)
	})

	t.Run("Rotate wraps and tilt clamps", func(t *testing.T) {
		cam := DefaultCamera().Rotate(-150)
		assert.InDelta(t, 150.0, cam.Azimuth, 1e-9)
		assert.Equal(t, 90.0, DefaultCamera().Tilt(200).Elevation)
		assert.Equal(t, 8.0, DefaultCamera().Scaled(100).Zoom)
	})
}
