//go:build !cgo || noaudio

package audio

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/config"
)

var errAudioDisabledCompilation = errors.New("audio was disabled during compilation")

func newPortAudio(cfg config.AudioConfig, log zerolog.Logger) (Host, error) {
	return nil, errAudioDisabledCompilation
}

func newMalgo(cfg config.AudioConfig, log zerolog.Logger) (Host, error) {
	return nil, errAudioDisabledCompilation
}
