// Package share puts clip details on the system clipboard.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available, e.g.
// Linux without xclip, xsel or wl-clipboard.
var ErrUnsupported = errors.New("clipboard not available")

// Clipboard writes text where the user can paste it.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

type systemClipboard struct {
	write func(string) error
}

// New returns the system clipboard.
func New() Clipboard {
	return &systemClipboard{write: clipboard.WriteAll}
}

func (c *systemClipboard) WriteText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// Info is the clip metadata copied for the user.
type Info struct {
	ID        string
	Device    string
	MimeType  string
	Size      int
	Duration  time.Duration
	CreatedAt time.Time
}

// Text renders info as a single line.
func (i Info) Text() string {
	return fmt.Sprintf("%s | %s | %s | %s | %s | %s",
		i.CreatedAt.Format(time.RFC3339),
		i.Device,
		i.Duration.Round(10*time.Millisecond),
		HumanSize(i.Size),
		i.MimeType,
		i.ID,
	)
}

// HumanSize formats a byte count with a binary unit.
func HumanSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
