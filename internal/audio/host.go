package audio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/config"
)

// New creates the host selected by cfg.Backend.
func New(cfg config.AudioConfig, log zerolog.Logger) (Host, error) {
	switch cfg.Backend {
	case "", config.BackendPortAudio:
		return newPortAudio(cfg, log)
	case config.BackendMalgo:
		return newMalgo(cfg, log)
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.Backend)
	}
}

func formatFromConfig(cfg config.AudioConfig) Format {
	f := Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
	if f.SampleRate <= 0 {
		f.SampleRate = 48000
	}
	if f.Channels <= 0 {
		f.Channels = 1
	}
	return f
}

// Unsupported returns a host with no usable audio subsystem. Enumeration
// reports ErrUnsupported and nothing can be acquired.
func Unsupported(reason error) Host {
	return unsupportedHost{reason: reason}
}

type unsupportedHost struct {
	reason error
}

func (u unsupportedHost) Name() string { return "unsupported" }

func (u unsupportedHost) RequestPermission(ctx context.Context) error { return nil }

func (u unsupportedHost) EnumerateDevices(ctx context.Context) ([]Device, error) {
	if u.reason != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, u.reason)
	}
	return nil, ErrUnsupported
}

func (u unsupportedHost) OpenStream(ctx context.Context, deviceID string) (Stream, error) {
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
}

func (u unsupportedHost) NewRecorder(stream Stream, onData func(Fragment)) (MediaRecorder, error) {
	return nil, ErrUnsupported
}

func (u unsupportedHost) Play(ctx context.Context, blob Blob) error { return ErrUnsupported }

func (u unsupportedHost) Close() error { return nil }
