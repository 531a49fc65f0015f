package tui

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/micclips/internal/app"
	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/audio/audiotest"
	"github.com/petems/micclips/internal/config"
	"github.com/petems/micclips/internal/recorder"
)

func newTestModel(t *testing.T, host *audiotest.Host) Model {
	t.Helper()

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	a := app.New(app.Config{
		Recorder: recorder.New(host, recorder.Options{Logger: zerolog.Nop()}),
		Config:   cfg,
		Logger:   zerolog.Nop(),
	})
	return New(context.Background(), a)
}

// run feeds msg to the model and then every message its commands produce.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for msg != nil {
		next, cmd := m.Update(msg)
		m = next.(Model)
		msg = nil
		if cmd != nil {
			msg = cmd()
		}
	}
	return m
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+r":
		msg = tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return run(t, m, msg)
}

func started(t *testing.T, host *audiotest.Host) Model {
	t.Helper()
	m := newTestModel(t, host)
	return run(t, m, m.Init()())
}

func TestEmptyDeviceListShowsWarningAndNoControls(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	host.PermissionErr = audio.ErrPermissionDenied

	m := started(t, host)
	view := m.View()

	assert.Contains(t, view, recorder.NotAccessibleText)
	assert.NotContains(t, view, "[ Record ]")
	assert.NotContains(t, view, "[ Stop ]")

	m = press(t, m, "r")
	assert.Empty(t, m.alert)
	assert.Equal(t, recorder.StateIdle, m.snap.State)
}

func TestLoadingViewBeforeDiscovery(t *testing.T) {
	m := newTestModel(t, audiotest.NewHost(audiotest.Input("d1", "Mic A")))

	view := m.View()
	assert.Contains(t, view, "Looking for microphones")
	assert.NotContains(t, view, recorder.NotAccessibleText)
}

func TestRecordWithoutSelectionShowsAlert(t *testing.T) {
	m := started(t, audiotest.NewHost(audiotest.Input("d1", "Mic A")))
	require.Contains(t, m.View(), "[ Record ]")

	m = press(t, m, "r")

	assert.Equal(t, NoDeviceAlert, m.alert)
	assert.Contains(t, m.View(), NoDeviceAlert)
	assert.Equal(t, recorder.StateIdle, m.snap.State)
	assert.Empty(t, m.snap.Clips)

	// Any key dismisses the alert without acting on it.
	m = press(t, m, "r")
	assert.Empty(t, m.alert)
	assert.Equal(t, recorder.StateIdle, m.snap.State)
}

func TestSelectRecordStop(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"), audiotest.Input("d2", "Mic B"))
	m := started(t, host)

	m = press(t, m, "down")
	m = press(t, m, "enter")
	require.True(t, m.snap.Armed)
	assert.Equal(t, "d2", m.snap.Selected.ID)

	m = press(t, m, "r")
	require.Equal(t, recorder.StateRecording, m.snap.State)
	view := m.View()
	assert.Contains(t, view, "[ Stop ]")
	assert.NotContains(t, view, "[ Record ]")

	host.LastRecorder().Emit(5, 7)

	m = press(t, m, "r")
	assert.Equal(t, recorder.StateArmed, m.snap.State)
	require.Len(t, m.snap.Clips, 1)
	assert.Equal(t, 12, m.snap.Clips[0].Size())
	assert.Contains(t, m.View(), "[ Record ]")
	assert.Contains(t, m.View(), "Mic B")
}

func TestDeviceSelectionLockedWhileRecording(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"), audiotest.Input("d2", "Mic B"))
	m := started(t, host)

	m = press(t, m, "enter")
	m = press(t, m, "r")
	require.Equal(t, recorder.StateRecording, m.snap.State)

	m = press(t, m, "down")
	assert.Equal(t, 0, m.devCursor)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	m = next.(Model)
	assert.Equal(t, "d1", m.snap.Selected.ID)
	assert.Len(t, host.Streams(), 1)
}

func TestPlayAndDeleteFromFileList(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	m := started(t, host)

	m = press(t, m, "enter")
	for i := 0; i < 2; i++ {
		m = press(t, m, "r")
		host.LastRecorder().Emit(2)
		m = press(t, m, "r")
	}
	require.Len(t, m.snap.Clips, 2)
	second := m.snap.Clips[1]

	m = press(t, m, "tab")
	require.Equal(t, focusClips, m.focus)

	m = press(t, m, "enter")
	assert.Len(t, host.Played(), 1)
	assert.Empty(t, m.playing)

	m = press(t, m, "d")
	require.Len(t, m.snap.Clips, 1)
	assert.Same(t, second, m.snap.Clips[0])
}

func TestDeleteLastClipReturnsFocusToDevices(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	m := started(t, host)

	m = press(t, m, "enter")
	m = press(t, m, "r")
	m = press(t, m, "r")
	m = press(t, m, "tab")
	m = press(t, m, "d")

	assert.Empty(t, m.snap.Clips)
	assert.Equal(t, focusDevices, m.focus)
	assert.Contains(t, m.View(), "No recordings yet")
}

func TestCopyWithoutClipboardAlerts(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	m := started(t, host)

	m = press(t, m, "enter")
	m = press(t, m, "r")
	m = press(t, m, "r")
	m = press(t, m, "tab")
	m = press(t, m, "c")

	assert.Equal(t, app.ErrNoClipboard.Error(), m.alert)
}

func TestRescanRunsOffTheEventLoop(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	m := started(t, host)
	require.Len(t, m.snap.Devices, 1)

	host.Devices = append(host.Devices, audiotest.Input("d2", "Mic B"))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.Len(t, next.(Model).snap.Devices, 1)

	m = run(t, next.(Model), cmd())
	assert.Len(t, m.snap.Devices, 2)
	assert.Contains(t, m.View(), "Mic B")
}

func TestRescanRefusedWhileRecordingAlerts(t *testing.T) {
	host := audiotest.NewHost(audiotest.Input("d1", "Mic A"))
	m := started(t, host)

	m = press(t, m, "enter")
	m = press(t, m, "r")
	require.Equal(t, recorder.StateRecording, m.snap.State)

	m = press(t, m, "ctrl+r")
	assert.NotEmpty(t, m.alert)
	assert.Equal(t, recorder.StateRecording, m.snap.State)
}

func TestQuit(t *testing.T) {
	m := started(t, audiotest.NewHost())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}
