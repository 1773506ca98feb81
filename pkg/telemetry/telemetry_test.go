package telemetry

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Typical level flight line", func(t *testing.T) {
		f, err := Parse("0.50|2.3|-1.5|0.0|0.01|-0.02|0.00|0.12|-0.05|9.78|NOML")
		require.NoError(t, err)

		assert.InDelta(t, 0.50, f.Time, 1e-12)
		assert.InDelta(t, 2.3, f.Roll, 1e-12)
		assert.InDelta(t, -1.5, f.Pitch, 1e-12)
		assert.InDelta(t, 0.0, f.Yaw, 1e-12)
		assert.InDelta(t, 0.01, f.RollRate, 1e-12)
		assert.InDelta(t, -0.02, f.PitchRate, 1e-12)
		assert.InDelta(t, 0.0, f.YawRate, 1e-12)
		assert.InDelta(t, 0.12, f.AccelX, 1e-12)
		assert.InDelta(t, -0.05, f.AccelY, 1e-12)
		assert.InDelta(t, 9.78, f.AccelZ, 1e-12)
		assert.Equal(t, "NOML", f.Mode)
	})

	t.Run("Whitespace around fields is ignored", func(t *testing.T) {
		f, err := Parse(" 1.25 |  10 | -20 | 30 | 1 | 2 | 3 | 4 | 5 | 6 |  CLIMB OUT  ")
		require.NoError(t, err)

		assert.Equal(t, 1.25, f.Time)
		assert.Equal(t, 10.0, f.Roll)
		assert.Equal(t, -20.0, f.Pitch)
		assert.Equal(t, 30.0, f.Yaw)
		assert.Equal(t, 6.0, f.AccelZ)
		// internal whitespace is preserved, only the edges are trimmed
		assert.Equal(t, "CLIMB OUT", f.Mode)
	})

	t.Run("Mode is not validated", func(t *testing.T) {
		f, err := Parse("0|0|0|0|0|0|0|0|0|0|")
		require.NoError(t, err)
		assert.Equal(t, "", f.Mode)
	})

	t.Run("Numeric fields round-trip through String", func(t *testing.T) {
		in := Frame{
			Time: 12.345, Roll: -1.5, Pitch: 0.25, Yaw: 179.9,
			RollRate: 0.001, PitchRate: -0.002, YawRate: 3,
			AccelX: 0.12, AccelY: -0.05, AccelZ: 9.81,
			Mode: "NOML",
		}
		out, err := Parse(in.String())
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestParseFieldCount(t *testing.T) {
	lines := []string{
		"",
		"|",
		"||||||||",
		"|||||||||",
		"1|2|3|4|5|6|7|8|9|10",
		"no delimiters at all",
		"1|2|3|4|5|6|7|8|9|10|AUTO|junk",
		"1|2|3|4|5|6|7|8|9|10|AUTO|",
	}

	for _, line := range lines {
		t.Run(strings.ReplaceAll(line, "|", "¦"), func(t *testing.T) {
			f, err := Parse(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFieldCount)
			assert.Equal(t, KindFieldCount, KindOf(err))
			assert.Equal(t, Frame{}, f, "no partial frame may be returned")
		})
	}

	t.Run("Extra fields report the count found", func(t *testing.T) {
		_, err := Parse("1|2|3|4|5|6|7|8|9|10|AUTO|junk|more")
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 13, pe.Got)
	})

	t.Run("Exactly eleven empty fields is a numeric failure", func(t *testing.T) {
		_, err := Parse("||||||||||")
		assert.ErrorIs(t, err, ErrNumericField)
	})
}

func TestParseNumericField(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		index int
	}{
		{"time", "x|0|0|0|0|0|0|0|0|0|NOML", 0},
		{"roll", "0|abc|0|0|0|0|0|0|0|0|NOML", 1},
		{"yaw empty", "0|0|0||0|0|0|0|0|0|NOML", 3},
		{"accel_z", "0|0|0|0|0|0|0|0|0|9.8.1|NOML", 9},
		{"first bad field wins", "0|0|bad|bad|0|0|0|0|0|0|NOML", 2},
		{"hex float", "0x1p3|0|0|0|0|0|0|0|0|0|NOML", 0},
		{"signed hex", "0|0|0|0|0|-0X10|0|0|0|0|NOML", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNumericField))
			assert.False(t, errors.Is(err, ErrFieldCount))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.index, pe.Index)
			assert.Equal(t, Frame{}, f)
		})
	}
}

func TestParseNonFinite(t *testing.T) {
	line := "1|NaN|0|+Inf|0|0|0|0|0|0|NOML"

	t.Run("Default parser passes non-finite values through", func(t *testing.T) {
		f, err := Parse(line)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(f.Roll))
		assert.True(t, math.IsInf(f.Yaw, 1))
		assert.False(t, f.IsFinite())
	})

	t.Run("Hardened parser rejects them", func(t *testing.T) {
		p := Parser{RejectNonFinite: true}
		_, err := p.Parse(line)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNonFinite)

		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 1, pe.Index)
		assert.Contains(t, pe.Error(), "roll")
	})

	t.Run("Hardened parser accepts finite frames", func(t *testing.T) {
		p := Parser{RejectNonFinite: true}
		f, err := p.Parse("1|2|3|4|5|6|7|8|9|10|NOML")
		require.NoError(t, err)
		assert.True(t, f.IsFinite())
	})
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "field_count", KindFieldCount.String())
	assert.Equal(t, "numeric_field", KindNumericField.String())
	assert.Equal(t, "non_finite", KindNonFinite.String())
	assert.Equal(t, "unknown", ErrorKind(0).String())
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("other")))
}
