package recorder

import (
	"sync"
	"time"

	"github.com/petems/micclips/internal/audio"
)

// Clip is one finished recording. It never changes once created.
type Clip struct {
	id        string
	blob      audio.Blob
	device    audio.Device
	createdAt time.Time
}

func newClip(id string, blob audio.Blob, device audio.Device, createdAt time.Time) *Clip {
	return &Clip{
		id:        id,
		blob:      blob,
		device:    device,
		createdAt: createdAt,
	}
}

// ID is the clip's handle; deletion and playback address clips by it.
func (c *Clip) ID() string { return c.id }

// Blob returns a copy of the playable data.
func (c *Clip) Blob() audio.Blob {
	b := c.blob
	b.Data = append([]byte(nil), c.blob.Data...)
	return b
}

func (c *Clip) Device() audio.Device { return c.device }
func (c *Clip) CreatedAt() time.Time { return c.createdAt }
func (c *Clip) Duration() time.Duration { return c.blob.Duration() }
func (c *Clip) Size() int { return c.blob.Size() }
func (c *Clip) MimeType() string { return c.blob.MimeType }

// Library is the ordered list of clips, oldest first.
type Library struct {
	mu    sync.RWMutex
	clips []*Clip
}

// Append adds c at the end.
func (l *Library) Append(c *Clip) {
	l.mu.Lock()
	l.clips = append(l.clips, c)
	l.mu.Unlock()
}

// Remove deletes the clip with the given handle, keeping the order of the
// rest. It reports whether a clip was removed.
func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, c := range l.clips {
		if c.id != id {
			continue
		}
		kept := make([]*Clip, 0, len(l.clips)-1)
		kept = append(kept, l.clips[:i]...)
		l.clips = append(kept, l.clips[i+1:]...)
		return true
	}
	return false
}

// Get looks a clip up by handle.
func (l *Library) Get(id string) (*Clip, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.clips {
		if c.id == id {
			return c, true
		}
	}
	return nil, false
}

// List returns a snapshot of the clips in recording order.
func (l *Library) List() []*Clip {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Clip(nil), l.clips...)
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clips)
}
