package main

import (
	"sort"

	"github.com/unklstewy/flightpath/pkg/render"
	"github.com/unklstewy/flightpath/pkg/trajectory"
)

// plot is a trajectory point ready to be drawn in the view.
type plot struct {
	render.Cell
	Color  render.RGBA
	Latest bool
}

// projectFrame projects every point of frame into a width x height viewport
// and orders the result back to front. Points outside the viewport are
// dropped. The newest point is flagged so it can be drawn as the vehicle.
func projectFrame(frame render.DrawableFrame, bounds trajectory.Bounds, cam render.Camera, width, height int) []plot {
	plots := make([]plot, 0, frame.Len())
	last := frame.Len() - 1
	for i, p := range frame.Points {
		cell, ok := cam.Project(p, bounds, width, height)
		if !ok {
			continue
		}
		plots = append(plots, plot{Cell: cell, Color: frame.Colors[i], Latest: i == last})
	}

	// nearer points overwrite farther ones; ties keep insertion order so
	// newer points win
	sort.SliceStable(plots, func(i, j int) bool {
		return plots[i].Depth < plots[j].Depth
	})
	return plots
}

// boxCorners returns the eight corners of b, indexed by bit: 1 = X max,
// 2 = Y max, 4 = Z max.
func boxCorners(b trajectory.Bounds) [8]render.Vec3 {
	var c [8]render.Vec3
	for i := range c {
		c[i] = render.Vec3{X: b.X.Min, Y: b.Y.Min, Z: b.Z.Min}
		if i&1 != 0 {
			c[i].X = b.X.Max
		}
		if i&2 != 0 {
			c[i].Y = b.Y.Max
		}
		if i&4 != 0 {
			c[i].Z = b.Z.Max
		}
	}
	return c
}

// projectBox places the corners of b in a width x height viewport. placed
// is false for a corner that cannot be drawn or that lies so far off screen
// that tracing an edge to it would stall the draw.
func projectBox(b trajectory.Bounds, cam render.Camera, width, height int) (cells [8]render.Cell, placed [8]bool) {
	limit := clipFactor * max(width, height)
	for i, c := range boxCorners(b) {
		cell, ok := cam.Place(c, b, width, height)
		if !ok || abs(cell.Col) > limit || abs(cell.Row) > limit {
			continue
		}
		cells[i], placed[i] = cell, true
	}
	return cells, placed
}

// clipFactor is how many viewport sizes off screen a box corner may sit.
const clipFactor = 64

// boxEdges lists the corner index pairs joined by the twelve box edges.
func boxEdges() [][2]int {
	var edges [][2]int
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				edges = append(edges, [2]int{i, i | bit})
			}
		}
	}
	return edges
}

// bresenham visits every cell on the line from (x0, y0) to (x1, y1).
func bresenham(x0, y0, x1, y1 int, visit func(x, y int)) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		visit(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
