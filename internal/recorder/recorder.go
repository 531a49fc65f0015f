// Package recorder implements the microphone clip recorder: device
// discovery, a single capture session bound to the selected input, and the
// in-memory clip library.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/audio"
)

// NotAccessibleText is shown when no input device can be used.
const NotAccessibleText = "Audio device not accessible. Check devices and site permissions."

var (
	// ErrNoRecorder is returned by Start when no device has been selected.
	ErrNoRecorder = errors.New("no input device armed")
	// ErrRecordingInProgress is returned when the capture source would change mid-clip.
	ErrRecordingInProgress = errors.New("cannot change input device while recording")
	ErrAlreadyRecording    = errors.New("already recording")
	ErrNotRecording        = errors.New("not recording")
	ErrClipNotFound        = errors.New("clip not found")
	// ErrSuperseded is returned by SelectDevice when a later selection won
	// while this one was still acquiring its stream.
	ErrSuperseded = errors.New("device selection superseded")
)

// State is the capture state.
type State int

const (
	// StateIdle means no capture session is attached.
	StateIdle State = iota
	// StateArmed means a device is selected and its recorder attached.
	StateArmed
	// StateRecording means fragments are being collected for a clip.
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Options struct {
	// Timeslice is the fragment interval requested from the host recorder.
	Timeslice time.Duration
	Logger    zerolog.Logger
	// Now and NewID are injectable for tests.
	Now   func() time.Time
	NewID func() string
}

// session binds the selected device to its stream and recorder.
type session struct {
	device audio.Device
	stream audio.Stream
	rec    audio.MediaRecorder
}

func (s *session) release() error {
	var stopErr error
	if s.rec.Recording() {
		stopErr = s.rec.Stop()
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return stopErr
}

// Recorder is safe for concurrent use. Host callbacks only touch the chunk
// buffer, so Stop can wait for the final flush while holding mu.
type Recorder struct {
	host      audio.Host
	log       zerolog.Logger
	timeslice time.Duration
	now       func() time.Time
	newID     func() string

	chunks ChunkBuffer
	clips  Library

	mu         sync.Mutex
	state      State
	devices    []audio.Device
	discovered bool
	session    *session
	generation uint64
}

func New(host audio.Host, opts Options) *Recorder {
	r := &Recorder{
		host:      host,
		log:       opts.Logger,
		timeslice: opts.Timeslice,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if r.timeslice <= 0 {
		r.timeslice = 10 * time.Millisecond
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

// Discover asks for microphone access and lists the audio inputs. It runs
// against the host once; later calls return the same list. Failures are
// logged and yield an empty list.
func (r *Recorder) Discover(ctx context.Context) []audio.Device {
	r.mu.Lock()
	if r.discovered {
		devices := r.devicesLocked()
		r.mu.Unlock()
		return devices
	}
	r.mu.Unlock()

	devices := r.discover(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.discovered {
		r.devices = devices
		r.discovered = true
	}
	return r.devicesLocked()
}

// Rediscover refreshes the device list from the host.
func (r *Recorder) Rediscover(ctx context.Context) ([]audio.Device, error) {
	if r.State() == StateRecording {
		return nil, ErrRecordingInProgress
	}

	devices := r.discover(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = devices
	r.discovered = true
	return r.devicesLocked(), nil
}

func (r *Recorder) discover(ctx context.Context) []audio.Device {
	if err := r.host.RequestPermission(ctx); err != nil {
		r.log.Warn().Err(err).Str("host", r.host.Name()).Msg("Microphone access not granted")
		return []audio.Device{}
	}

	all, err := r.host.EnumerateDevices(ctx)
	if errors.Is(err, audio.ErrUnsupported) {
		r.log.Info().Err(err).Str("host", r.host.Name()).Msg("Device enumeration not supported")
		return []audio.Device{}
	}
	if err != nil {
		r.log.Warn().Err(err).Str("host", r.host.Name()).Msg("Failed to enumerate devices")
		return []audio.Device{}
	}

	inputs := make([]audio.Device, 0, len(all))
	for _, d := range all {
		if d.Kind == audio.KindAudioInput {
			inputs = append(inputs, d)
		}
	}

	r.log.Info().Int("inputs", len(inputs)).Int("total", len(all)).Msg("Discovered audio devices")
	return inputs
}

func (r *Recorder) devicesLocked() []audio.Device {
	return append([]audio.Device{}, r.devices...)
}

// Devices returns the discovered input devices.
func (r *Recorder) Devices() []audio.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devicesLocked()
}

// SelectDevice replaces the capture session with one bound to exactly
// deviceID. The previous stream is released before the new one is acquired.
// An empty deviceID only releases the current session.
func (r *Recorder) SelectDevice(ctx context.Context, deviceID string) error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return ErrRecordingInProgress
	}
	r.generation++
	gen := r.generation
	prev := r.session
	r.session = nil
	r.state = StateIdle
	label := deviceID
	for _, d := range r.devices {
		if d.ID == deviceID {
			label = d.Label
			break
		}
	}
	r.mu.Unlock()

	if prev != nil {
		if err := prev.release(); err != nil {
			r.log.Warn().Err(err).Str("device", prev.device.Label).Msg("Failed to release previous stream")
		}
		r.log.Debug().Str("device", prev.device.Label).Msg("Released capture session")
	}

	if deviceID == "" {
		return nil
	}

	stream, err := r.host.OpenStream(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("failed to acquire %q: %w", label, err)
	}

	rec, err := r.host.NewRecorder(stream, r.onData)
	if err != nil {
		stream.Close()
		return fmt.Errorf("failed to attach recorder to %q: %w", label, err)
	}

	device := stream.Device()
	if device.Label == "" {
		device.Label = label
	}

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		stream.Close()
		r.log.Debug().Str("device", label).Msg("Discarded superseded stream")
		return ErrSuperseded
	}
	r.session = &session{device: device, stream: stream, rec: rec}
	r.state = StateArmed
	r.mu.Unlock()

	r.log.Info().Str("device", label).Msg("Armed input device")
	return nil
}

// onData is the data-available callback handed to the host recorder.
func (r *Recorder) onData(f audio.Fragment) {
	if !r.chunks.Append(f) {
		r.log.Trace().Msg("Dropped empty fragment")
	}
}

// SelectedDevice returns the armed device, if any.
func (r *Recorder) SelectedDevice() (audio.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return audio.Device{}, false
	}
	return r.session.device, true
}

// State returns the current capture state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start begins a new clip. The chunk buffer is cleared first.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrAlreadyRecording
	}
	if r.session == nil {
		r.log.Warn().Msg("Record requested with no input device armed")
		return ErrNoRecorder
	}

	r.chunks.Reset()
	if err := r.session.rec.Start(r.timeslice); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	r.state = StateRecording

	r.log.Info().Str("device", r.session.device.Label).Dur("timeslice", r.timeslice).Msg("Recording started")
	return nil
}

// Stop ends the clip in progress and appends it to the library. The host
// recorder delivers its final fragment before Stop consolidates.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return nil, ErrNotRecording
	}

	if err := r.session.rec.Stop(); err != nil {
		r.log.Warn().Err(err).Msg("Recorder stop reported an error")
	}
	r.state = StateArmed

	frags := r.chunks.Drain()
	blob := audio.NewBlob(frags, r.session.stream.Format())
	clip := newClip(r.newID(), blob, r.session.device, r.now())
	r.clips.Append(clip)

	r.log.Info().
		Str("clip", clip.ID()).
		Int("fragments", len(frags)).
		Int("bytes", clip.Size()).
		Dur("duration", clip.Duration()).
		Msg("Recording saved")
	return clip, nil
}

// Toggle starts a clip when idle or armed and stops it when recording. The
// returned clip is nil unless a recording was stopped.
func (r *Recorder) Toggle() (*Clip, error) {
	if r.State() == StateRecording {
		return r.Stop()
	}
	return nil, r.Start()
}

// Clips returns the library in recording order.
func (r *Recorder) Clips() []*Clip {
	return r.clips.List()
}

// Clip looks up a clip by handle.
func (r *Recorder) Clip(id string) (*Clip, bool) {
	return r.clips.Get(id)
}

// DeleteClip removes exactly the clip with the given handle.
func (r *Recorder) DeleteClip(id string) error {
	if !r.clips.Remove(id) {
		return fmt.Errorf("%w: %s", ErrClipNotFound, id)
	}
	r.log.Info().Str("clip", id).Msg("Deleted clip")
	return nil
}

// PlayClip plays a clip on the default output and blocks until it finishes.
func (r *Recorder) PlayClip(ctx context.Context, id string) error {
	clip, ok := r.clips.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrClipNotFound, id)
	}
	if err := r.host.Play(ctx, clip.blob); err != nil {
		return fmt.Errorf("failed to play clip: %w", err)
	}
	return nil
}

// Snapshot is a consistent view of the recorder for rendering.
type Snapshot struct {
	State      State
	Discovered bool
	Devices    []audio.Device
	Selected   audio.Device
	Armed      bool
	Clips      []*Clip
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		State:      r.state,
		Discovered: r.discovered,
		Devices:    r.devicesLocked(),
		Clips:      r.clips.List(),
	}
	if r.session != nil {
		snap.Selected = r.session.device
		snap.Armed = true
	}
	return snap
}

// Close stops any recording in progress, keeping it as a clip, and releases
// the capture session.
func (r *Recorder) Close() error {
	if r.State() == StateRecording {
		if _, err := r.Stop(); err != nil {
			r.log.Warn().Err(err).Msg("Failed to stop recording on close")
		}
	}

	r.mu.Lock()
	prev := r.session
	r.session = nil
	r.state = StateIdle
	r.generation++
	r.mu.Unlock()

	if prev != nil {
		return prev.release()
	}
	return nil
}
