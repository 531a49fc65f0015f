package output

import (
	"fmt"
	"io"
	"time"

	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/share"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) DeviceListHeader(backend string) {
	fmt.Fprintf(f.w, "🎙️  Input devices (%s):\n\n", backend)
}

func (f *Formatter) DeviceListItem(d audio.Device, armed bool) {
	marks := ""
	if d.Default {
		marks += " (default)"
	}
	if armed {
		marks += " ✅"
	}
	if d.ID != d.Label {
		fmt.Fprintf(f.w, "  %s [%s]%s\n", d.Label, d.ID, marks)
		return
	}
	fmt.Fprintf(f.w, "  %s%s\n", d.Label, marks)
}

func (f *Formatter) Recording(device string, d time.Duration) {
	fmt.Fprintf(f.w, "🔴 Recording %s from %s...\n", formatDuration(d), device)
}

func (f *Formatter) RecordingStopped(duration time.Duration, size int) {
	fmt.Fprintf(f.w, "⏹️  Recording stopped (%s, %s)\n", formatDuration(duration), share.HumanSize(size))
}

func (f *Formatter) Playing() {
	fmt.Fprintf(f.w, "▶️  Playing back...\n")
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(10 * time.Millisecond).String()
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	return fmt.Sprintf("%dm%02ds", m, s)
}
