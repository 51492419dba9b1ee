package observ

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("load")
	tm.End(idx, "demo.mp")
	require.NoError(t, tm.Measure("translate", func() error { return nil }))
	err := tm.Measure("write", func() error { return errors.New("disk full") })
	require.EqualError(t, err, "disk full")

	report := tm.Report()
	require.Len(t, report.Phases, 3)
	assert.Equal(t, "load", report.Phases[0].Name)
	assert.Equal(t, "demo.mp", report.Phases[0].Note)
	assert.Equal(t, "failed: disk full", report.Phases[2].Note)
	assert.GreaterOrEqual(t, report.TotalMS, 0.0)

	summary := tm.Summary()
	assert.True(t, strings.HasPrefix(summary, "timings:\n"))
	assert.Contains(t, summary, "// demo.mp")
	assert.Contains(t, summary, "total")
}

func TestTimerIgnoresUnknownIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "nothing")
	assert.Equal(t, Report{}, tm.Report())
}

func TestTimerRecord(t *testing.T) {
	tm := NewTimer()
	tm.Record("schedule", 1500*time.Microsecond, "")
	report := tm.Report()
	require.Len(t, report.Phases, 1)
	assert.InDelta(t, 1.5, report.Phases[0].DurationMS, 1e-9)
	assert.InDelta(t, 1.5, report.TotalMS, 1e-9)
	assert.Contains(t, tm.Summary(), "100.0%")
}
