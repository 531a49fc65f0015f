package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/config"
)

func TestNewBlobJoinsFragmentsInOrder(t *testing.T) {
	format := Format{SampleRate: 8000, Channels: 1}
	blob := NewBlob([]Fragment{
		{Data: []byte{1, 1}},
		{Data: []byte{2, 2, 2}},
	}, format)

	want := []byte{1, 1, 2, 2, 2}
	if len(blob.Data) != len(want) {
		t.Fatalf("expected %d bytes, got %d", len(want), len(blob.Data))
	}
	for i := range want {
		if blob.Data[i] != want[i] {
			t.Fatalf("byte %d mismatch: expected %d, got %d", i, want[i], blob.Data[i])
		}
	}
	if blob.MimeType != "audio/L16; rate=8000; channels=1" {
		t.Errorf("unexpected mime type %q", blob.MimeType)
	}
}

func TestNewBlobSkipsZeroSizeFragments(t *testing.T) {
	blob := NewBlob([]Fragment{
		{Data: []byte{7}},
		{Data: nil},
		{Data: []byte{}},
		{Data: []byte{9}},
	}, Format{SampleRate: 8000, Channels: 1})

	if blob.Size() != 2 || blob.Data[0] != 7 || blob.Data[1] != 9 {
		t.Fatalf("expected [7 9], got %v", blob.Data)
	}
}

func TestNewBlobDoesNotAliasFragments(t *testing.T) {
	frag := Fragment{Data: []byte{1, 2}}
	blob := NewBlob([]Fragment{frag}, Format{SampleRate: 8000, Channels: 1})

	frag.Data[0] = 42
	if blob.Data[0] != 1 {
		t.Fatal("expected blob to own a copy of fragment data")
	}
}

func TestBlobDuration(t *testing.T) {
	format := Format{SampleRate: 8000, Channels: 2}
	// 8000 stereo frames of 16-bit samples is one second.
	blob := Blob{Format: format, Data: make([]byte, 8000*4)}
	if got := blob.Duration(); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}

	if got := (Blob{}).Duration(); got != 0 {
		t.Fatalf("expected zero duration for empty format, got %s", got)
	}
}

func TestSamplesRoundTripEncoding(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	blob := Blob{Data: encodeSamples(nil, in)}

	got := blob.Samples()
	if len(got) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d mismatch: expected %d, got %d", i, in[i], got[i])
		}
	}
}

func TestFormatFramesIn(t *testing.T) {
	format := Format{SampleRate: 48000, Channels: 1}
	if got := format.FramesIn(10 * time.Millisecond); got != 480 {
		t.Fatalf("expected 480 frames, got %d", got)
	}
	if got := format.FramesIn(0); got != 1 {
		t.Fatalf("expected at least one frame, got %d", got)
	}
}

func TestUnsupportedHostDegrades(t *testing.T) {
	host := Unsupported(errors.New("no backend"))

	if _, err := host.EnumerateDevices(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := host.OpenStream(context.Background(), "d1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(config.AudioConfig{Backend: "jack"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
