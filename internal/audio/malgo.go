//go:build cgo && !noaudio

package audio

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/config"
	"github.com/petems/micclips/internal/permissions"
)

// malgoPeriodMS is the device period requested from miniaudio.
const malgoPeriodMS = 10

// malgoHost offloads device work to miniaudio through malgo.
type malgoHost struct {
	ctx    *malgo.AllocatedContext
	format Format
	log    zerolog.Logger
}

func newMalgo(cfg config.AudioConfig, log zerolog.Logger) (Host, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo: %w", err)
	}
	return &malgoHost{
		ctx:    ctx,
		format: formatFromConfig(cfg),
		log:    log.With().Str("backend", config.BackendMalgo).Logger(),
	}, nil
}

// deviceKey renders a malgo device id as a printable identifier.
func deviceKey(id malgo.DeviceID) string {
	return hex.EncodeToString(bytes.TrimRight(id[:], "\x00"))
}

func (h *malgoHost) Name() string {
	return config.BackendMalgo
}

func (h *malgoHost) RequestPermission(ctx context.Context) error {
	if err := permissions.RequestMicrophone(ctx); err != nil {
		if errors.Is(err, permissions.ErrDenied) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return err
	}
	return nil
}

func (h *malgoHost) listDevices(typ malgo.DeviceType, kind Kind) ([]Device, []malgo.DeviceID, error) {
	infos, err := h.ctx.Devices(typ)
	if err != nil {
		return nil, nil, err
	}

	devices := make([]Device, 0, len(infos))
	ids := make([]malgo.DeviceID, 0, len(infos))
	seen := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		// Avoid duplicate device IDs.
		key := deviceKey(info.ID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		devices = append(devices, Device{
			ID:      key,
			Label:   info.Name(),
			Kind:    kind,
			Default: info.IsDefault == 1,
		})
		ids = append(ids, info.ID)
	}
	return devices, ids, nil
}

func (h *malgoHost) EnumerateDevices(ctx context.Context) ([]Device, error) {
	capture, _, err := h.listDevices(malgo.Capture, KindAudioInput)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	playback, _, err := h.listDevices(malgo.Playback, KindAudioOutput)
	if err != nil {
		h.log.Warn().Err(err).Msg("Unable to list playback devices")
	}
	return append(capture, playback...), nil
}

func (h *malgoHost) OpenStream(ctx context.Context, deviceID string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devices, ids, err := h.listDevices(malgo.Capture, KindAudioInput)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	var (
		device   Device
		malgoID  malgo.DeviceID
		found    bool
		useFixed bool
	)
	for i := range devices {
		if (deviceID == "" && devices[i].Default) || (deviceID != "" && devices[i].ID == deviceID) {
			device, malgoID, found, useFixed = devices[i], ids[i], true, deviceID != ""
			break
		}
	}
	if !found {
		if deviceID != "" {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
		}
		device = Device{Label: "default", Kind: KindAudioInput, Default: true}
	}

	s := &malgoStream{device: device, format: h.format}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = uint32(s.format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = malgoPeriodMS
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(s.format.Channels)
	deviceConfig.Alsa.NoMMap = 1
	if useFixed {
		deviceConfig.Capture.DeviceID = malgoID.Pointer()
	}

	dev, err := malgo.InitDevice(h.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onFrames,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}
	s.dev = dev

	h.log.Debug().Str("device", device.Label).Msg("Opened input stream")
	return s, nil
}

func (h *malgoHost) NewRecorder(stream Stream, onData func(Fragment)) (MediaRecorder, error) {
	s, ok := stream.(*malgoStream)
	if !ok {
		return nil, fmt.Errorf("malgo: foreign stream %T", stream)
	}
	return &malgoRecorder{stream: s, onData: onData, log: h.log}, nil
}

func (h *malgoHost) Play(ctx context.Context, blob Blob) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = uint32(blob.Format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = malgoPeriodMS
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(blob.Format.Channels)
	deviceConfig.Alsa.NoMMap = 1

	var (
		mu       sync.Mutex
		pos      int
		finished = make(chan struct{})
		once     sync.Once
	)
	onSend := func(pOutput, _ []byte, _ uint32) {
		mu.Lock()
		n := copy(pOutput, blob.Data[pos:])
		pos += n
		done := pos >= len(blob.Data)
		mu.Unlock()

		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}
		if done {
			once.Do(func() { close(finished) })
		}
	}

	dev, err := malgo.InitDevice(h.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSend,
	})
	if err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	select {
	case <-finished:
	case <-ctx.Done():
	}
	_ = dev.Stop()
	return ctx.Err()
}

func (h *malgoHost) Close() error {
	if err := h.ctx.Uninit(); err != nil {
		return err
	}
	h.ctx.Free()
	return nil
}

type malgoStream struct {
	dev    *malgo.Device
	device Device
	format Format

	mu     sync.Mutex
	sink   func([]byte)
	closed bool
}

func (s *malgoStream) Device() Device { return s.device }
func (s *malgoStream) Format() Format { return s.format }

func (s *malgoStream) setSink(sink func([]byte)) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// onFrames runs on the miniaudio thread.
func (s *malgoStream) onFrames(_, pInput []byte, _ uint32) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(pInput)
	}
}

func (s *malgoStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.sink = nil
	s.mu.Unlock()

	// Uninit waits for in-flight callbacks, which take s.mu.
	s.dev.Uninit()
	return nil
}

// malgoRecorder collects device callbacks into timeslice-sized fragments and
// hands them to onData from a single goroutine, preserving capture order.
type malgoRecorder struct {
	stream *malgoStream
	onData func(Fragment)
	log    zerolog.Logger

	mu        sync.Mutex
	recording bool
	slices    *slicer
	frags     chan []byte
	done      chan struct{}
}

func (r *malgoRecorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return errors.New("recorder already started")
	}
	r.stream.mu.Lock()
	closed := r.stream.closed
	r.stream.mu.Unlock()
	if closed {
		r.mu.Unlock()
		return ErrStreamClosed
	}
	if timeslice <= 0 {
		timeslice = malgoPeriodMS * time.Millisecond
	}

	r.slices = newSlicer(r.stream.format.FramesIn(timeslice) * r.stream.format.BytesPerFrame())
	// About one second of fragments in flight.
	r.frags = make(chan []byte, int(time.Second/timeslice)+1)
	r.done = make(chan struct{})
	r.recording = true
	go r.emit(r.frags, r.done)
	r.mu.Unlock()

	r.stream.setSink(r.capture)
	if err := r.stream.dev.Start(); err != nil {
		r.stream.setSink(nil)
		r.mu.Lock()
		r.recording = false
		close(r.frags)
		done := r.done
		r.mu.Unlock()
		<-done
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (r *malgoRecorder) capture(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	frag, ok := r.slices.add(data)
	if !ok {
		return
	}

	select {
	case r.frags <- frag:
	default:
		// Drop if the consumer fell a full second behind.
		r.log.Warn().Int("bytes", len(frag)).Msg("Dropped capture fragment")
	}
}

func (r *malgoRecorder) emit(frags <-chan []byte, done chan struct{}) {
	defer close(done)
	for data := range frags {
		r.onData(Fragment{Data: data})
	}
}

func (r *malgoRecorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	// No callbacks run once the device has stopped.
	err := r.stream.dev.Stop()
	r.stream.setSink(nil)

	r.mu.Lock()
	r.recording = false
	final := r.slices.flush()
	frags, done := r.frags, r.done
	r.mu.Unlock()

	frags <- final
	close(frags)
	<-done
	return err
}

func (r *malgoRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
