// Package trajectory keeps a bounded, insertion-ordered history of
// dead-reckoned positions for display.
package trajectory

import "math"

// DefaultMaxPoints is the store capacity used when none is configured.
const DefaultMaxPoints = 1000

// Point is one recorded position.
type Point struct {
	X, Y, Z float64

	// Sequence is the insertion index. It increases by one per Push and is
	// never reused, even across Reset. It is used for color weighting only.
	Sequence uint64
}

// Extent is the closed range [Min, Max] covered on one axis.
type Extent struct {
	Min, Max float64
}

// Span returns Max - Min.
func (e Extent) Span() float64 {
	return e.Max - e.Min
}

// Bounds holds the extent of each axis.
type Bounds struct {
	X, Y, Z Extent
}

// Store is a fixed-capacity FIFO of points.
// The oldest point is evicted when a push would exceed capacity.
// A Store is not safe for concurrent use; it belongs to one session.
type Store struct {
	// ring buffer: points[head] is the oldest, count entries are live
	points []Point
	head   int
	count  int

	next    uint64
	evicted uint64

	bounds Bounds
}

// New returns an empty store holding at most maxPoints points.
// A non-positive maxPoints selects DefaultMaxPoints.
func New(maxPoints int) *Store {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Store{points: make([]Point, maxPoints)}
}

// Cap returns the fixed capacity.
func (s *Store) Cap() int {
	return len(s.points)
}

// Len returns the number of live points.
func (s *Store) Len() int {
	return s.count
}

// Evicted returns how many points have been dropped to make room.
func (s *Store) Evicted() uint64 {
	return s.evicted
}

// Push appends a point, evicting the oldest one when the store is full,
// and returns the stored point with its assigned sequence.
func (s *Store) Push(x, y, z float64) Point {
	p := Point{X: x, Y: y, Z: z, Sequence: s.next}
	s.next++

	if s.count < len(s.points) {
		s.points[(s.head+s.count)%len(s.points)] = p
		s.count++
		s.include(p)
		return p
	}

	old := s.points[s.head]
	s.points[s.head] = p
	s.head = (s.head + 1) % len(s.points)
	s.evicted++

	if s.touchesBounds(old) {
		s.recompute()
	} else {
		s.include(p)
	}
	return p
}

// Snapshot returns a copy of the live points, oldest first.
func (s *Store) Snapshot() []Point {
	out := make([]Point, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.points[(s.head+i)%len(s.points)]
	}
	return out
}

// Last returns the most recently pushed point.
func (s *Store) Last() (Point, bool) {
	if s.count == 0 {
		return Point{}, false
	}
	return s.points[(s.head+s.count-1)%len(s.points)], true
}

// AxisBounds returns the per-axis min/max over the live window.
// ok is false when the store is empty. No padding is applied.
//
// NaN coordinates never widen an extent, wherever they sit in the window.
// An axis whose live values are all NaN reports Extent{NaN, NaN}.
func (s *Store) AxisBounds() (b Bounds, ok bool) {
	if s.count == 0 {
		return Bounds{}, false
	}
	return s.bounds.settled(), true
}

// BoundsOf returns the extents of points under the same rules as
// Store.AxisBounds.
func BoundsOf(points []Point) Bounds {
	b := unset()
	for _, p := range points {
		b.include(p)
	}
	return b.settled()
}

// Reset drops every point. Capacity is unchanged and sequence numbering
// continues from where it left off.
func (s *Store) Reset() {
	clear(s.points)
	s.head = 0
	s.count = 0
	s.bounds = Bounds{}
}

// include widens the bounds to cover p.
func (s *Store) include(p Point) {
	if s.count == 1 {
		s.bounds = unset()
	}
	s.bounds.include(p)
}

// touchesBounds reports whether p sits on any current extremum, in which
// case evicting it may shrink the bounds.
func (s *Store) touchesBounds(p Point) bool {
	return onEdge(s.bounds.X, p.X) || onEdge(s.bounds.Y, p.Y) || onEdge(s.bounds.Z, p.Z)
}

// recompute rescans the live window.
func (s *Store) recompute() {
	b := unset()
	for i := 0; i < s.count; i++ {
		b.include(s.points[(s.head+i)%len(s.points)])
	}
	s.bounds = b
}

// unset returns inverted extents that the first non-NaN value on each axis
// replaces.
func unset() Bounds {
	e := Extent{Min: math.Inf(1), Max: math.Inf(-1)}
	return Bounds{X: e, Y: e, Z: e}
}

func (b *Bounds) include(p Point) {
	widen(&b.X, p.X)
	widen(&b.Y, p.Y)
	widen(&b.Z, p.Z)
}

// settled maps axes that never saw a non-NaN value to Extent{NaN, NaN}.
func (b Bounds) settled() Bounds {
	for _, e := range []*Extent{&b.X, &b.Y, &b.Z} {
		if e.Min > e.Max {
			*e = Extent{Min: math.NaN(), Max: math.NaN()}
		}
	}
	return b
}

func widen(e *Extent, v float64) {
	if v < e.Min {
		e.Min = v
	}
	if v > e.Max {
		e.Max = v
	}
}

// onEdge treats NaN as touching so a window that once held NaN is rescanned.
func onEdge(e Extent, v float64) bool {
	return v <= e.Min || v >= e.Max || math.IsNaN(v)
}
