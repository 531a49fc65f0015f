// Package audiotest provides a scriptable audio.Host for tests.
package audiotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/petems/micclips/internal/audio"
)

// DefaultFormat is the format of streams opened by a Host unless overridden.
var DefaultFormat = audio.Format{SampleRate: 8000, Channels: 1}

// Host is an in-memory audio.Host. Fields may be set before use; the
// accessors are safe for concurrent use.
type Host struct {
	Devices       []audio.Device
	Format        audio.Format
	PermissionErr error
	EnumerateErr  error
	OpenErr       error
	PlayErr       error

	mu        sync.Mutex
	streams   []*Stream
	recorders []*Recorder
	played    []audio.Blob
	gates     map[string]chan struct{}
	closed    bool
}

// NewHost returns a host exposing devices.
func NewHost(devices ...audio.Device) *Host {
	return &Host{Devices: devices, Format: DefaultFormat}
}

// Input is shorthand for an audio input device.
func Input(id, label string) audio.Device {
	return audio.Device{ID: id, Label: label, Kind: audio.KindAudioInput}
}

// Output is shorthand for an audio output device.
func Output(id, label string) audio.Device {
	return audio.Device{ID: id, Label: label, Kind: audio.KindAudioOutput}
}

func (h *Host) Name() string { return "fake" }

func (h *Host) RequestPermission(ctx context.Context) error {
	return h.PermissionErr
}

func (h *Host) EnumerateDevices(ctx context.Context) ([]audio.Device, error) {
	if h.EnumerateErr != nil {
		return nil, h.EnumerateErr
	}
	return append([]audio.Device(nil), h.Devices...), nil
}

// Hold makes OpenStream for deviceID block until Release is called.
func (h *Host) Hold(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gates == nil {
		h.gates = make(map[string]chan struct{})
	}
	h.gates[deviceID] = make(chan struct{})
}

// Release unblocks a held OpenStream.
func (h *Host) Release(deviceID string) {
	h.mu.Lock()
	gate := h.gates[deviceID]
	delete(h.gates, deviceID)
	h.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (h *Host) OpenStream(ctx context.Context, deviceID string) (audio.Stream, error) {
	h.mu.Lock()
	gate := h.gates[deviceID]
	h.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if h.OpenErr != nil {
		return nil, h.OpenErr
	}

	var device *audio.Device
	for i := range h.Devices {
		d := h.Devices[i]
		if d.Kind != audio.KindAudioInput {
			continue
		}
		if d.ID == deviceID || (deviceID == "" && d.Default) {
			device = &d
			break
		}
	}
	if device == nil {
		return nil, fmt.Errorf("%w: %s", audio.ErrDeviceNotFound, deviceID)
	}

	s := &Stream{device: *device, format: h.Format}
	h.mu.Lock()
	h.streams = append(h.streams, s)
	h.mu.Unlock()
	return s, nil
}

func (h *Host) NewRecorder(stream audio.Stream, onData func(audio.Fragment)) (audio.MediaRecorder, error) {
	s, ok := stream.(*Stream)
	if !ok {
		return nil, fmt.Errorf("audiotest: foreign stream %T", stream)
	}
	r := &Recorder{stream: s, onData: onData}
	h.mu.Lock()
	h.recorders = append(h.recorders, r)
	h.mu.Unlock()
	return r, nil
}

func (h *Host) Play(ctx context.Context, blob audio.Blob) error {
	if h.PlayErr != nil {
		return h.PlayErr
	}
	h.mu.Lock()
	h.played = append(h.played, blob)
	h.mu.Unlock()
	return nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

// Streams returns every stream opened so far, oldest first.
func (h *Host) Streams() []*Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Stream(nil), h.streams...)
}

// LastRecorder returns the most recently attached recorder, or nil.
func (h *Host) LastRecorder() *Recorder {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recorders) == 0 {
		return nil
	}
	return h.recorders[len(h.recorders)-1]
}

// Played returns the blobs handed to Play.
func (h *Host) Played() []audio.Blob {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]audio.Blob(nil), h.played...)
}

// Stream is a fake acquired stream.
type Stream struct {
	device audio.Device
	format audio.Format

	mu     sync.Mutex
	closed bool
}

func (s *Stream) Device() audio.Device { return s.device }
func (s *Stream) Format() audio.Format { return s.format }

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Recorder is a fake MediaRecorder. Fragments are delivered synchronously
// through Emit, and Stop flushes whatever was queued with QueueFinal.
type Recorder struct {
	stream *Stream
	onData func(audio.Fragment)

	mu        sync.Mutex
	recording bool
	timeslice time.Duration
	starts    int
	final     []byte
	seq       byte
}

func (r *Recorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("audiotest: already recording")
	}
	if r.stream.Closed() {
		return audio.ErrStreamClosed
	}
	r.recording = true
	r.timeslice = timeslice
	r.starts++
	return nil
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	final := r.final
	r.final = nil
	r.mu.Unlock()

	r.onData(audio.Fragment{Data: final})
	return nil
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Timeslice returns the interval passed to the last Start.
func (r *Recorder) Timeslice() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeslice
}

// Starts counts calls to Start that succeeded.
func (r *Recorder) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

// Emit delivers one fragment per size while recording. Each fragment is
// filled with its own sequence byte, starting at 1. It returns the data
// delivered.
func (r *Recorder) Emit(sizes ...int) [][]byte {
	var out [][]byte
	for _, size := range sizes {
		r.mu.Lock()
		if !r.recording {
			r.mu.Unlock()
			continue
		}
		r.seq++
		data := make([]byte, size)
		for i := range data {
			data[i] = r.seq
		}
		r.mu.Unlock()

		r.onData(audio.Fragment{Data: data})
		out = append(out, data)
	}
	return out
}

// QueueFinal sets the data flushed by the next Stop.
func (r *Recorder) QueueFinal(data []byte) {
	r.mu.Lock()
	r.final = append([]byte(nil), data...)
	r.mu.Unlock()
}
