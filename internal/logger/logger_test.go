package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)
	log.Debug("hidden")
	log.Info("normalized dataset", "rows", 2, "empty", "")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "normalized dataset")
	assert.Contains(t, out, "rows=2")
	assert.NotContains(t, out, "empty=")
	assert.NotContains(t, out, "\x1b[", "no color codes outside a terminal")

	buf.Reset()
	NewWithWriter(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 4, 5, 123_456_789, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-05T09:04:05.123Z", formatRFC3339Millis(ts))
}
