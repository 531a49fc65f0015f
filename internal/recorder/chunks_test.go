package recorder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/micclips/internal/audio"
)

func TestChunkBufferRejectsEmptyFragments(t *testing.T) {
	var b ChunkBuffer

	assert.False(t, b.Append(audio.Fragment{}))
	assert.False(t, b.Append(audio.Fragment{Data: []byte{}}))
	assert.True(t, b.Append(audio.Fragment{Data: []byte{1}}))

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, b.Size())
}

func TestChunkBufferCopiesData(t *testing.T) {
	var b ChunkBuffer
	data := []byte{1, 2, 3}
	b.Append(audio.Fragment{Data: data})
	data[0] = 99

	frags := b.Drain()
	require.Len(t, frags, 1)
	assert.Equal(t, []byte{1, 2, 3}, frags[0].Data)
}

func TestChunkBufferDrainEmpties(t *testing.T) {
	var b ChunkBuffer
	b.Append(audio.Fragment{Data: []byte{1}})
	b.Append(audio.Fragment{Data: []byte{2, 2}})

	frags := b.Drain()
	require.Len(t, frags, 2)
	assert.Equal(t, []byte{1}, frags[0].Data)
	assert.Equal(t, []byte{2, 2}, frags[1].Data)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Size())
}

func TestChunkBufferConcurrentAppend(t *testing.T) {
	var (
		b  ChunkBuffer
		wg sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Append(audio.Fragment{Data: []byte{1, 2}})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, b.Len())
	assert.Equal(t, 1600, b.Size())
}

func TestLibraryRemoveKeepsOrder(t *testing.T) {
	var lib Library
	now := time.Now()
	for _, id := range []string{"a", "b", "c", "d"} {
		lib.Append(newClip(id, audio.Blob{}, audio.Device{}, now))
	}

	assert.True(t, lib.Remove("a"))
	assert.True(t, lib.Remove("c"))
	assert.False(t, lib.Remove("c"))

	var ids []string
	for _, c := range lib.List() {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"b", "d"}, ids)
	assert.Equal(t, 2, lib.Len())

	_, ok := lib.Get("b")
	assert.True(t, ok)
	_, ok = lib.Get("a")
	assert.False(t, ok)
}

func TestLibraryListIsSnapshot(t *testing.T) {
	var lib Library
	lib.Append(newClip("a", audio.Blob{}, audio.Device{}, time.Now()))

	list := lib.List()
	lib.Append(newClip("b", audio.Blob{}, audio.Device{}, time.Now()))

	assert.Len(t, list, 1)
	assert.Equal(t, 2, lib.Len())
}
