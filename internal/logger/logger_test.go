package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2025, 1, 4, 12, 30, 15, 123_456_789, time.FixedZone("x", 3600))
	assert.Equal(t, "2025-01-04T11:30:15.123Z", formatRFC3339Millis(ts))
}

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)
	log.Debug("hidden")
	log.Info("shown", "sale", "abc", "empty", "")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "abc")
	assert.NotContains(t, out, "empty")

	buf.Reset()
	NewWithWriter(&buf, true).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
