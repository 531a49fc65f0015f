package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupported is returned when the backend cannot enumerate devices.
	ErrUnsupported = errors.New("device enumeration not supported")
	// ErrPermissionDenied is returned when microphone access is refused.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceNotFound is returned when no input device matches the requested ID.
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrStreamClosed is returned when a closed stream is used.
	ErrStreamClosed = errors.New("audio stream closed")
)

// Kind tells input endpoints from output endpoints.
type Kind string

const (
	KindAudioInput  Kind = "audioinput"
	KindAudioOutput Kind = "audiooutput"
)

// Device is a host-enumerated audio endpoint.
type Device struct {
	ID      string
	Label   string
	Kind    Kind
	Default bool
}

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame is the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return 2 * f.Channels
}

// FramesIn returns how many frames cover d.
func (f Format) FramesIn(d time.Duration) int {
	frames := int(d * time.Duration(f.SampleRate) / time.Second)
	if frames < 1 {
		frames = 1
	}
	return frames
}

// MimeType is the media type tag stored with a consolidated recording.
func (f Format) MimeType() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate, f.Channels)
}

// Fragment is one piece of captured data handed over by a MediaRecorder.
type Fragment struct {
	Data []byte
}

func (f Fragment) Size() int {
	return len(f.Data)
}

// Host is the platform audio subsystem.
type Host interface {
	Name() string
	RequestPermission(ctx context.Context) error
	EnumerateDevices(ctx context.Context) ([]Device, error)
	// OpenStream acquires a live input stream bound to exactly deviceID. An
	// empty deviceID selects the default input.
	OpenStream(ctx context.Context, deviceID string) (Stream, error)
	NewRecorder(stream Stream, onData func(Fragment)) (MediaRecorder, error)
	// Play blocks until blob has been played or ctx is done.
	Play(ctx context.Context, blob Blob) error
	Close() error
}

// Stream is an acquired input stream. Close is safe to call more than once.
type Stream interface {
	Device() Device
	Format() Format
	Close() error
}

// MediaRecorder turns a Stream into fragments delivered through its onData
// callback, in capture order.
type MediaRecorder interface {
	// Start begins emitting a fragment roughly every timeslice.
	Start(timeslice time.Duration) error
	// Stop ends capture. Any buffered data is delivered through onData,
	// possibly as a zero-size fragment, before Stop returns.
	Stop() error
	Recording() bool
}
