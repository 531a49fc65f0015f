package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/petems/micclips/internal/audio"
)

func TestDeviceListItem(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.DeviceListItem(audio.Device{ID: "Mic A", Label: "Mic A", Default: true}, false)
	f.DeviceListItem(audio.Device{ID: "0a1b", Label: "USB Mic"}, true)

	assert.Equal(t, "  Mic A (default)\n  USB Mic [0a1b] ✅\n", buf.String())
}

func TestRecordingStopped(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf).RecordingStopped(1500*time.Millisecond, 2048)

	assert.Equal(t, "⏹️  Recording stopped (1.5s, 2.0 KiB)\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "2m05s", formatDuration(125*time.Second))
}
