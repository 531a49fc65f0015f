package audio

import (
	"encoding/binary"
	"time"
)

// Blob is a consolidated, playable recording.
type Blob struct {
	MimeType string
	Format   Format
	Data     []byte
}

// NewBlob joins fragments in order. Zero-size fragments contribute nothing.
func NewBlob(fragments []Fragment, format Format) Blob {
	size := 0
	for _, f := range fragments {
		size += f.Size()
	}

	data := make([]byte, 0, size)
	for _, f := range fragments {
		if f.Size() == 0 {
			continue
		}
		data = append(data, f.Data...)
	}

	return Blob{
		MimeType: format.MimeType(),
		Format:   format,
		Data:     data,
	}
}

func (b Blob) Size() int {
	return len(b.Data)
}

// Duration is the playback length implied by the data size and format.
func (b Blob) Duration() time.Duration {
	bpf := b.Format.BytesPerFrame()
	if bpf == 0 || b.Format.SampleRate == 0 {
		return 0
	}
	frames := len(b.Data) / bpf
	return time.Duration(frames) * time.Second / time.Duration(b.Format.SampleRate)
}

// Samples decodes the PCM payload. A trailing odd byte is ignored.
func (b Blob) Samples() []int16 {
	out := make([]int16, len(b.Data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b.Data[2*i:]))
	}
	return out
}

// encodeSamples appends samples to dst as little-endian PCM.
func encodeSamples(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
