package tracking

import (
	"fmt"
	"math"
	"strings"

	"github.com/unklstewy/flightpath/pkg/telemetry"
)

const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// DefaultDt is the time step assumed for the first frame of a session,
	// when there is no earlier timestamp to difference against
	DefaultDt = 0.05

	// DefaultSpeed is the assumed constant forward speed in m/s
	DefaultSpeed = 1.0
)

// Vector3 is a position or velocity in the local world frame.
// X and Y are horizontal (X along zero yaw), Z is up. Units are meters or m/s.
type Vector3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v * s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// KinematicState is the dead-reckoned position and velocity of the vehicle.
// It is owned by a single session and mutated only by Advance.
type KinematicState struct {
	// Position in meters relative to the session origin
	Position Vector3

	// Velocity in m/s; the direction vector scaled by the assumed speed
	Velocity Vector3

	// LastTime is the timestamp of the previous frame, nil before the first frame
	LastTime *float64
}

// NewKinematicState returns a state at the origin with no prior timestamp.
func NewKinematicState() *KinematicState {
	return &KinematicState{}
}

// Reset returns the state to the origin and forgets the last timestamp.
func (s *KinematicState) Reset() {
	*s = KinematicState{}
}

// DtPolicy decides what happens when consecutive timestamps do not advance.
type DtPolicy int

const (
	// DtRaw uses the raw timestamp difference, including zero and negative values
	DtRaw DtPolicy = iota

	// DtClamp raises any dt below the integrator's MinDt to MinDt
	DtClamp

	// DtSkip applies no displacement when dt <= 0
	DtSkip
)

// String returns the config spelling of the policy.
func (p DtPolicy) String() string {
	switch p {
	case DtRaw:
		return "raw"
	case DtClamp:
		return "clamp"
	case DtSkip:
		return "skip"
	default:
		return fmt.Sprintf("DtPolicy(%d)", int(p))
	}
}

// ParseDtPolicy parses "raw", "clamp" or "skip". An empty string means DtRaw.
func ParseDtPolicy(s string) (DtPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return DtRaw, nil
	case "clamp":
		return DtClamp, nil
	case "skip":
		return DtSkip, nil
	default:
		return DtRaw, fmt.Errorf("unknown dt policy %q (want raw, clamp or skip)", s)
	}
}

// Integrator advances a KinematicState under a constant forward speed.
type Integrator struct {
	// Speed is the assumed forward speed in m/s
	Speed float64

	// Policy handles repeated or decreasing timestamps
	Policy DtPolicy

	// MinDt is the floor used by DtClamp, in seconds
	MinDt float64
}

// NewIntegrator returns an integrator using raw timestamp differences.
func NewIntegrator(speed float64) *Integrator {
	return &Integrator{Speed: speed, Policy: DtRaw}
}

// Direction returns the forward direction for the given pitch and yaw
// (degrees) scaled by speed. Body forward is +X; roll does not change it.
func Direction(pitchDeg, yawDeg, speed float64) Vector3 {
	pitch := pitchDeg * DegreesToRadians
	yaw := yawDeg * DegreesToRadians

	return Vector3{
		X: speed * math.Cos(pitch) * math.Cos(yaw),
		Y: speed * math.Cos(pitch) * math.Sin(yaw),
		Z: speed * math.Sin(pitch),
	}
}

// Dt returns the time step for frame given the state's last timestamp.
func Dt(frame telemetry.Frame, state *KinematicState) float64 {
	if state.LastTime == nil {
		return DefaultDt
	}
	return frame.Time - *state.LastTime
}

// Advance integrates one frame into state using the raw timestamp difference
// and returns the new position.
//
// Rates and accelerations in the frame are not used. Non-finite inputs are
// propagated into the state unchanged.
func Advance(frame telemetry.Frame, state *KinematicState, constantSpeed float64) Vector3 {
	return NewIntegrator(constantSpeed).Advance(frame, state)
}

// Advance integrates one frame into state under the integrator's dt policy
// and returns the new position.
func (in *Integrator) Advance(frame telemetry.Frame, state *KinematicState) Vector3 {
	dt := in.effectiveDt(Dt(frame, state))

	d := Direction(frame.Pitch, frame.Yaw, in.Speed)
	state.Position = state.Position.Add(d.Scale(dt))
	state.Velocity = d

	t := frame.Time
	state.LastTime = &t

	return state.Position
}

func (in *Integrator) effectiveDt(dt float64) float64 {
	switch in.Policy {
	case DtClamp:
		if dt < in.MinDt {
			return in.MinDt
		}
	case DtSkip:
		if dt <= 0 {
			return 0
		}
	}
	return dt
}
