package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/audio/audiotest"
	"github.com/petems/micclips/internal/config"
	"github.com/petems/micclips/internal/recorder"
	"github.com/petems/micclips/internal/share"
)

type nopClipboard struct{}

func (nopClipboard) WriteText(context.Context, string) error { return nil }

func testDeps(t *testing.T, host *audiotest.Host) (*Dependencies, *bytes.Buffer, *config.AudioConfig) {
	t.Helper()

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	var out bytes.Buffer
	var seen config.AudioConfig
	deps := &Dependencies{
		Config: cfg,
		Stdout: &out,
		NewHost: func(c config.AudioConfig, _ zerolog.Logger) (audio.Host, error) {
			seen = c
			return host, nil
		},
		NewLogger:    func(string, bool) zerolog.Logger { return zerolog.Nop() },
		NewClipboard: func() share.Clipboard { return nopClipboard{} },
	}
	return deps, &out, &seen
}

func execute(t *testing.T, deps *Dependencies, args ...string) error {
	t.Helper()
	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

func TestDevicesListsInputs(t *testing.T) {
	host := audiotest.NewHost(
		audiotest.Input("d1", "Mic A"),
		audiotest.Output("o1", "Speakers"),
		audiotest.Input("d2", "Mic B"),
	)
	deps, out, _ := testDeps(t, host)

	require.NoError(t, execute(t, deps, "devices"))

	assert.Contains(t, out.String(), "Mic A [d1]")
	assert.Contains(t, out.String(), "Mic B [d2]")
	assert.NotContains(t, out.String(), "Speakers")
}

func TestDevicesMarksArmedDevice(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"), audiotest.Input("d2", "Mic B"))
	deps, out, _ := testDeps(t, host)

	require.NoError(t, execute(t, deps, "devices", "--device", "d2"))

	assert.Contains(t, out.String(), "Mic B [d2] ✅")
	assert.NotContains(t, out.String(), "Mic A [d1] ✅")
}

func TestDevicesEmptyListWarns(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	host.PermissionErr = audio.ErrPermissionDenied
	deps, out, _ := testDeps(t, host)

	require.NoError(t, execute(t, deps, "devices"))

	assert.Contains(t, out.String(), recorder.NotAccessibleText)
}

func TestBackendFlagReachesHost(t *testing.T) {
	deps, _, seen := testDeps(t, audiotest.NewHost(audiotest.Input("d1", "Mic A")))

	require.NoError(t, execute(t, deps, "devices", "--backend", config.BackendMalgo))

	assert.Equal(t, config.BackendMalgo, seen.Backend)
}

func TestCheckRecordsClip(t *testing.T) {
	deps, out, _ := testDeps(t, audiotest.NewHost(audiotest.Input("d1", "Mic A")))

	require.NoError(t, execute(t, deps, "check", "--duration", "1ms"))

	assert.Contains(t, out.String(), "Recording")
	assert.Contains(t, out.String(), "Recording stopped")
	// The fake recorder delivers no audio on its own.
	assert.Contains(t, out.String(), "No audio was captured")
}

func TestCheckDoesNotSaveDevice(t *testing.T) {
	deps, _, _ := testDeps(t, audiotest.NewHost(audiotest.Input("d1", "Mic A")))

	require.NoError(t, execute(t, deps, "check", "--duration", "1ms"))

	reloaded, err := config.LoadFrom(deps.Config.Path())
	require.NoError(t, err)
	assert.Empty(t, reloaded.Audio.DeviceID)
}

func TestFlagsAreNotSaved(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	deps, _, _ := testDeps(t, host)

	require.NoError(t, execute(t, deps, "devices", "--backend", config.BackendMalgo, "--log-level", "trace"))
	assert.Equal(t, "trace", deps.Config.LogLevel)
	require.NoError(t, deps.Config.SaveDevice("d1"))

	reloaded, err := config.LoadFrom(deps.Config.Path())
	require.NoError(t, err)
	assert.Equal(t, config.BackendPortAudio, reloaded.Audio.Backend)
	assert.Equal(t, "info", reloaded.LogLevel)
	assert.Equal(t, "d1", reloaded.Audio.DeviceID)
}

func TestCheckWithoutDevicesFails(t *testing.T) {
	host := audiotest.NewHost()
	deps, out, _ := testDeps(t, host)

	err := execute(t, deps, "check", "--duration", "1ms")
	require.ErrorIs(t, err, errNoInput)
	assert.Contains(t, out.String(), recorder.NotAccessibleText)
}

func TestHostFailureDegrades(t *testing.T) {
	deps, out, _ := testDeps(t, nil)
	deps.NewHost = func(config.AudioConfig, zerolog.Logger) (audio.Host, error) {
		return nil, assert.AnError
	}

	require.NoError(t, execute(t, deps, "devices"))
	assert.Contains(t, out.String(), recorder.NotAccessibleText)
}
