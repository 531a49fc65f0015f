//go:build cgo && !noaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/config"
	"github.com/petems/micclips/internal/permissions"
)

// periodSize is the capture read granularity.
const periodSize = 10 * time.Millisecond

type portAudioHost struct {
	format Format
	log    zerolog.Logger
}

// newPortAudio creates a PortAudio-backed host
func newPortAudio(cfg config.AudioConfig, log zerolog.Logger) (Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioHost{
		format: formatFromConfig(cfg),
		log:    log.With().Str("backend", config.BackendPortAudio).Logger(),
	}, nil
}

func (p *portAudioHost) Name() string {
	return config.BackendPortAudio
}

func (p *portAudioHost) RequestPermission(ctx context.Context) error {
	if err := permissions.RequestMicrophone(ctx); err != nil {
		if errors.Is(err, permissions.ErrDenied) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return err
	}
	return nil
}

func (p *portAudioHost) EnumerateDevices(ctx context.Context) ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	result := make([]Device, 0, len(devices))
	seen := make(map[Kind]map[string]struct{}, 2)
	add := func(kind Kind, d *portaudio.DeviceInfo, isDefault bool) {
		if seen[kind] == nil {
			seen[kind] = make(map[string]struct{})
		}
		// Several host APIs may expose the same device name.
		if _, ok := seen[kind][d.Name]; ok {
			return
		}
		seen[kind][d.Name] = struct{}{}
		result = append(result, Device{
			ID:      d.Name,
			Label:   d.Name,
			Kind:    kind,
			Default: isDefault,
		})
	}

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			add(KindAudioInput, d, d == defaultIn)
		}
		if d.MaxOutputChannels > 0 {
			add(KindAudioOutput, d, d == defaultOut)
		}
	}

	return result, nil
}

func (p *portAudioHost) inputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

func (p *portAudioHost) OpenStream(ctx context.Context, deviceID string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := p.inputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	format := p.format
	if device.MaxInputChannels < format.Channels {
		format.Channels = device.MaxInputChannels
	}

	frames := format.FramesIn(periodSize)
	buffer := make([]int16, frames*format.Channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: format.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: frames,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	p.log.Debug().Str("device", device.Name).Int("channels", format.Channels).Msg("Opened input stream")

	return &paStream{
		stream: stream,
		buffer: buffer,
		device: Device{ID: device.Name, Label: device.Name, Kind: KindAudioInput},
		format: format,
	}, nil
}

func (p *portAudioHost) NewRecorder(stream Stream, onData func(Fragment)) (MediaRecorder, error) {
	s, ok := stream.(*paStream)
	if !ok {
		return nil, fmt.Errorf("portaudio: foreign stream %T", stream)
	}
	return &paRecorder{stream: s, onData: onData, log: p.log}, nil
}

func (p *portAudioHost) Play(ctx context.Context, blob Blob) error {
	device, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("failed to get default output device: %w", err)
	}

	channels := blob.Format.Channels
	frames := blob.Format.FramesIn(periodSize)
	buffer := make([]int16, frames*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(blob.Format.SampleRate),
		FramesPerBuffer: frames,
	}, buffer)
	if err != nil {
		return fmt.Errorf("failed to open playback stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start playback stream: %w", err)
	}
	defer stream.Stop()

	samples := blob.Samples()
	for pos := 0; pos < len(samples); pos += len(buffer) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[pos:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("playback write failed: %w", err)
		}
	}
	return nil
}

func (p *portAudioHost) Close() error {
	return portaudio.Terminate()
}

type paStream struct {
	stream *portaudio.Stream
	buffer []int16
	device Device
	format Format

	mu     sync.Mutex
	closed bool
}

func (s *paStream) Device() Device { return s.device }
func (s *paStream) Format() Format { return s.format }

func (s *paStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *paStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

// paRecorder drives a blocking-read loop and cuts the samples into
// timeslice-sized fragments.
type paRecorder struct {
	stream *paStream
	onData func(Fragment)
	log    zerolog.Logger

	mu        sync.Mutex
	recording bool
	readErr   error
	stop      chan struct{}
	done      chan struct{}
}

func (r *paRecorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return errors.New("recorder already started")
	}
	if r.stream.isClosed() {
		return ErrStreamClosed
	}

	if err := r.stream.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	slices := newSlicer(r.stream.format.FramesIn(timeslice) * r.stream.format.BytesPerFrame())
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.readErr = nil
	r.recording = true

	go r.readLoop(r.stream.stream.Read, r.stream.buffer, slices, r.stop, r.done)
	return nil
}

func (r *paRecorder) readLoop(read func() error, buffer []int16, slices *slicer, stop, done chan struct{}) {
	defer close(done)

	err := r.capture(read, buffer, slices, stop)
	r.onData(Fragment{Data: slices.flush()})
	if err != nil {
		r.log.Warn().Err(err).Msg("Capture read failed")
		r.mu.Lock()
		r.readErr = err
		r.mu.Unlock()
	}
}

// capture reads into buffer until stop is closed or a read fails. An input
// overflow only means samples were lost before this read, so it goes on.
func (r *paRecorder) capture(read func() error, buffer []int16, slices *slicer, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return err
			}
			r.log.Debug().Msg("Input overflowed")
		}

		if frag, ok := slices.addSamples(buffer); ok {
			r.onData(Fragment{Data: frag})
		}
	}
}

// Stop waits for the last fragment and reports a read failure that ended
// capture early.
func (r *paRecorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	// The read loop delivers its last fragment before closing done.
	<-done

	r.mu.Lock()
	readErr := r.readErr
	r.mu.Unlock()
	return errors.Join(readErr, r.stream.stream.Stop())
}

func (r *paRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
