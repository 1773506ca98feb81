package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("Counts accepted and rejected frames", func(t *testing.T) {
		c := New()
		c.FrameAccepted(0.05)
		c.FrameAccepted(1)
		c.FrameRejected("field_count")
		c.FrameRejected("field_count")
		c.FrameRejected("numeric_field")

		assert.Equal(t, 2.0, testutil.ToFloat64(c.framesAccepted))
		assert.Equal(t, 2.0, testutil.ToFloat64(c.framesRejected.WithLabelValues("field_count")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.framesRejected.WithLabelValues("numeric_field")))
	})

	t.Run("Tracks window size and evictions", func(t *testing.T) {
		c := New()
		c.PointStored(1, false)
		c.PointStored(2, false)
		c.PointStored(2, true)

		assert.Equal(t, 2.0, testutil.ToFloat64(c.points))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.pointsEvicted))
	})
}

func TestHandler(t *testing.T) {
	c := New()
	c.FrameAccepted(0.05)
	c.FrameRejected("non_finite")
	c.WatchQueue(func() uint64 { return 42 }, func() uint64 { return 3 })

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	for _, want := range []string{
		"flightpath_frames_accepted_total 1",
		`flightpath_frames_rejected_total{reason="non_finite"} 1`,
		"flightpath_frame_dt_seconds_bucket",
		"flightpath_transport_lines_read_total 42",
		"flightpath_transport_lines_dropped_total 3",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(text, want), "Expected %q in metrics output", want)
	}
}
