package recorder

import (
	"sync"

	"github.com/petems/micclips/internal/audio"
)

// ChunkBuffer accumulates the fragments of one recording pass in delivery
// order. It is the sink a MediaRecorder's data callback appends to.
type ChunkBuffer struct {
	mu    sync.Mutex
	frags []audio.Fragment
	size  int
}

// Append stores a copy of f. Zero-size fragments are rejected.
func (b *ChunkBuffer) Append(f audio.Fragment) bool {
	if f.Size() == 0 {
		return false
	}

	// Copy to avoid caller mutations.
	data := make([]byte, len(f.Data))
	copy(data, f.Data)

	b.mu.Lock()
	b.frags = append(b.frags, audio.Fragment{Data: data})
	b.size += len(data)
	b.mu.Unlock()
	return true
}

// Reset discards everything buffered so far.
func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	b.frags = nil
	b.size = 0
	b.mu.Unlock()
}

// Len returns the number of buffered fragments.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frags)
}

// Size returns the number of buffered bytes.
func (b *ChunkBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Drain hands over the buffered fragments and empties the buffer.
func (b *ChunkBuffer) Drain() []audio.Fragment {
	b.mu.Lock()
	defer b.mu.Unlock()
	frags := b.frags
	b.frags = nil
	b.size = 0
	return frags
}
