package share

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoText(t *testing.T) {
	info := Info{
		ID:        "clip-1",
		Device:    "Mic A",
		MimeType:  "audio/L16; rate=8000; channels=1",
		Size:      2048,
		Duration:  1234 * time.Millisecond,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	assert.Equal(t,
		"2024-05-01T12:00:00Z | Mic A | 1.23s | 2.0 KiB | audio/L16; rate=8000; channels=1 | clip-1",
		info.Text())
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "0 B", HumanSize(0))
	assert.Equal(t, "1023 B", HumanSize(1023))
	assert.Equal(t, "1.5 KiB", HumanSize(1536))
	assert.Equal(t, "3.0 MiB", HumanSize(3*1024*1024))
}

func TestWriteTextUsesWriter(t *testing.T) {
	var got string
	c := &systemClipboard{write: func(s string) error {
		got = s
		return nil
	}}

	err := c.WriteText(context.Background(), "hello")
	if errors.Is(err, ErrUnsupported) {
		t.Skip("no clipboard utility on this host")
	}
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestWriteTextHonoursCancelledContext(t *testing.T) {
	c := &systemClipboard{write: func(string) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.WriteText(ctx, "hello")
	if errors.Is(err, ErrUnsupported) {
		t.Skip("no clipboard utility on this host")
	}
	require.ErrorIs(t, err, context.Canceled)
}
