// Package telemetry parses the pipe-delimited attitude frames emitted by the
// flight computer.
//
// Wire format (one frame per line, whitespace around fields ignored):
//
//	time|roll|pitch|yaw|roll_rate|pitch_rate|yaw_rate|accel_x|accel_y|accel_z|mode
//
// Example:
//
//	0.50|2.3|-1.5|0.0|0.01|-0.02|0.00|0.12|-0.05|9.78|NOML
package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// Delimiter separates fields on the wire
	Delimiter = "|"

	// FieldCount is the number of fields a frame must carry
	FieldCount = 11

	// numericFields is the number of leading fields parsed as float64
	numericFields = 10
)

// Fields names the wire fields in their fixed positional order.
var Fields = [FieldCount]string{
	"time", "roll", "pitch", "yaw",
	"roll_rate", "pitch_rate", "yaw_rate",
	"accel_x", "accel_y", "accel_z", "mode",
}

// Frame is a single decoded telemetry record.
// Frames are values; nothing in this module mutates one after Parse returns it.
type Frame struct {
	// Time is the device timestamp in seconds (monotonic, non-negative)
	Time float64

	// Roll, Pitch and Yaw are the attitude angles in degrees
	Roll  float64
	Pitch float64
	Yaw   float64

	// RollRate, PitchRate and YawRate are angular rates in degrees per second
	RollRate  float64
	PitchRate float64
	YawRate   float64

	// AccelX, AccelY and AccelZ are body accelerations in m/s²
	AccelX float64
	AccelY float64
	AccelZ float64

	// Mode is the flight mode token reported by the device (e.g. "NOML")
	Mode string
}

// Numeric returns the ten numeric fields in wire order.
func (f Frame) Numeric() [numericFields]float64 {
	return [numericFields]float64{
		f.Time, f.Roll, f.Pitch, f.Yaw,
		f.RollRate, f.PitchRate, f.YawRate,
		f.AccelX, f.AccelY, f.AccelZ,
	}
}

// String formats the frame back into wire format.
func (f Frame) String() string {
	var b strings.Builder
	for _, v := range f.Numeric() {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteString(Delimiter)
	}
	b.WriteString(f.Mode)
	return b.String()
}

// Parser converts raw lines into frames.
// The zero value is permissive: any value
// strconv.ParseFloat accepts, including NaN and Inf, is passed through.
type Parser struct {
	// RejectNonFinite rejects frames carrying NaN or ±Inf in a numeric field
	RejectNonFinite bool
}

// Parse decodes one telemetry line using the default Parser.
func Parse(line string) (Frame, error) {
	return Parser{}.Parse(line)
}

// Parse decodes one telemetry line.
// The line must have exactly FieldCount fields. Numeric fields are decimal;
// hexadecimal floats are rejected. A frame is only returned when every
// field decoded.
func (p Parser) Parse(line string) (Frame, error) {
	parts := strings.Split(line, Delimiter)
	if len(parts) != FieldCount {
		return Frame{}, &ParseError{Kind: KindFieldCount, Index: -1, Got: len(parts)}
	}

	var values [numericFields]float64
	for i := 0; i < numericFields; i++ {
		raw := strings.TrimSpace(parts[i])
		if isHex(raw) {
			return Frame{}, &ParseError{Kind: KindNumericField, Index: i, Value: raw}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Frame{}, &ParseError{Kind: KindNumericField, Index: i, Value: raw, Err: err}
		}
		if p.RejectNonFinite && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return Frame{}, &ParseError{Kind: KindNonFinite, Index: i, Value: raw}
		}
		values[i] = v
	}

	return Frame{
		Time:      values[0],
		Roll:      values[1],
		Pitch:     values[2],
		Yaw:       values[3],
		RollRate:  values[4],
		PitchRate: values[5],
		YawRate:   values[6],
		AccelX:    values[7],
		AccelY:    values[8],
		AccelZ:    values[9],
		Mode:      strings.TrimSpace(parts[numericFields]),
	}, nil
}

// isHex reports whether s carries a 0x prefix, which strconv.ParseFloat
// accepts but the device never sends.
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// IsFinite reports whether every numeric field is a finite number.
func (f Frame) IsFinite() bool {
	for _, v := range f.Numeric() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// fieldName returns the wire name for a field index, or a placeholder.
func fieldName(index int) string {
	if index < 0 || index >= FieldCount {
		return fmt.Sprintf("field[%d]", index)
	}
	return Fields[index]
}
