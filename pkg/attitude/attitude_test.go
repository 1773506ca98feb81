package attitude

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBar(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		min, max   float64
		wantFilled int
	}{
		{"Center of range", 0, -RollLimit, RollLimit, 10},
		{"Lower limit", -45, -RollLimit, RollLimit, 0},
		{"Upper limit", 45, -RollLimit, RollLimit, 20},
		{"Clamped above", 100, -PitchLimit, PitchLimit, 20},
		{"Clamped below", -100, -PitchLimit, PitchLimit, 0},
		{"Yaw quarter turn", 90, -YawLimit, YawLimit, 15},
		{"Truncates partial cells", 1, -45, 45, 10},
		{"NaN is empty", math.NaN(), -45, 45, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := Bar(tt.value, tt.min, tt.max, BarWidth)
			assert.Equal(t, BarWidth, utf8.RuneCountInString(bar))
			assert.Equal(t, tt.wantFilled, strings.Count(bar, string(BarFilled)))
		})
	}

	t.Run("Zero width is empty", func(t *testing.T) {
		assert.Equal(t, "", Bar(10, -45, 45, 0))
	})
}

func countRows(grid [][]Cell, kind Cell, col int) int {
	n := 0
	for _, row := range grid {
		if row[col] == kind {
			n++
		}
	}
	return n
}

func TestHorizonGrid(t *testing.T) {
	t.Run("Level flight splits at the center row", func(t *testing.T) {
		grid := HorizonGrid(0, 0, HorizonWidth, HorizonHeight)
		require.Len(t, grid, HorizonHeight)
		require.Len(t, grid[0], HorizonWidth)

		assert.Equal(t, 7, countRows(grid, Sky, 0))
		assert.Equal(t, Sky, grid[6][0])
		assert.Equal(t, Ground, grid[7][0])
	})

	t.Run("Aircraft marker sits at the center", func(t *testing.T) {
		grid := HorizonGrid(0, 0, HorizonWidth, HorizonHeight)
		assert.Equal(t, Marker, grid[7][20])
		for _, x := range []int{18, 19, 21, 22} {
			assert.Equal(t, Wingtip, grid[7][x], "column %d", x)
		}
		assert.Equal(t, Ground, grid[7][17])
		assert.Equal(t, Ground, grid[7][23])
	})

	t.Run("Nose up raises the horizon", func(t *testing.T) {
		grid := HorizonGrid(0, 30, HorizonWidth, HorizonHeight)
		assert.Equal(t, 5, countRows(grid, Sky, 0))
	})

	t.Run("Small pitch leaves the horizon centered", func(t *testing.T) {
		grid := HorizonGrid(0, 10, HorizonWidth, HorizonHeight)
		assert.Equal(t, 7, countRows(grid, Sky, 0))
	})

	t.Run("Ninety degrees of roll splits left from right", func(t *testing.T) {
		grid := HorizonGrid(90, 0, HorizonWidth, HorizonHeight)
		assert.Equal(t, Sky, grid[0][0])
		assert.Equal(t, Sky, grid[14][0])
		assert.Equal(t, Ground, grid[0][39])
		assert.Equal(t, Ground, grid[14][39])
	})

	t.Run("Degenerate size", func(t *testing.T) {
		assert.Nil(t, HorizonGrid(0, 0, 0, 10))
	})
}

func TestHorizon(t *testing.T) {
	lines := Horizon(0, 0, HorizonWidth, HorizonHeight)
	require.Len(t, lines, HorizonHeight)
	for _, l := range lines {
		assert.Equal(t, HorizonWidth, utf8.RuneCountInString(l))
	}
	assert.Equal(t, strings.Repeat(string(SkyGlyph), HorizonWidth), lines[0])
	assert.Equal(t, strings.Repeat(string(GroundGlyph), HorizonWidth), lines[14])
	assert.Contains(t, lines[7], "──✈──")
}
