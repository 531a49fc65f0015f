package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/config"
	"github.com/petems/micclips/internal/recorder"
	"github.com/petems/micclips/internal/share"
)

// ErrNoClipboard is returned by CopyClipInfo when no clipboard is configured.
var ErrNoClipboard = errors.New("no clipboard configured")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetArmed(device string)
	SetRecording()
	SetError(err error)
	SetClips(clips []*recorder.Clip)
}

type Config struct {
	Recorder      *recorder.Recorder
	Clipboard     share.Clipboard // Optional - CopyClipInfo fails without it
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App drives the recorder on behalf of a front end and keeps the config and
// status display in step with it.
type App struct {
	rec       *recorder.Recorder
	clipboard share.Clipboard
	cfg       *config.Config
	log       zerolog.Logger

	mu     sync.Mutex
	status StatusUpdater
}

func New(cfg Config) *App {
	return &App{
		rec:       cfg.Recorder,
		clipboard: cfg.Clipboard,
		cfg:       cfg.Config,
		log:       cfg.Logger,
		status:    cfg.StatusUpdater,
	}
}

// SetStatusUpdater sets the status sink (for circular dependency resolution)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *App) statusUpdater() StatusUpdater {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// publish pushes the recorder state to the status sink.
func (a *App) publish(clipsChanged bool) {
	s := a.statusUpdater()
	if s == nil {
		return
	}

	snap := a.rec.Snapshot()
	switch {
	case snap.State == recorder.StateRecording:
		s.SetRecording()
	case snap.Armed:
		s.SetArmed(snap.Selected.Label)
	default:
		s.SetIdle()
	}
	if clipsChanged {
		s.SetClips(snap.Clips)
	}
}

func (a *App) fail(err error) error {
	if s := a.statusUpdater(); s != nil {
		s.SetError(err)
	}
	return err
}

// Discover lists the input devices. The first time it runs, the device
// saved in the config is armed if it is present.
func (a *App) Discover(ctx context.Context) []audio.Device {
	first := !a.rec.Snapshot().Discovered
	devices := a.rec.Discover(ctx)
	if len(devices) == 0 {
		a.log.Warn().Msg(recorder.NotAccessibleText)
	}

	if first {
		a.armPreferred(ctx, devices)
	}
	a.publish(false)
	return devices
}

// Rediscover refreshes the device list.
func (a *App) Rediscover(ctx context.Context) ([]audio.Device, error) {
	devices, err := a.rec.Rediscover(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	a.publish(false)
	return devices, nil
}

func (a *App) armPreferred(ctx context.Context, devices []audio.Device) {
	want := a.cfg.Audio.DeviceID
	if want == "" {
		return
	}
	if _, armed := a.rec.SelectedDevice(); armed {
		return
	}
	for _, d := range devices {
		if d.ID != want {
			continue
		}
		if err := a.rec.SelectDevice(ctx, d.ID); err != nil {
			a.log.Warn().Err(err).Str("device", d.Label).Msg("Failed to arm saved device")
		}
		return
	}
	a.log.Info().Str("device", want).Msg("Saved device not present")
}

// SelectDevice arms the given input and remembers it in the config.
func (a *App) SelectDevice(ctx context.Context, id string) error {
	return a.selectDevice(ctx, id, true)
}

// ArmDevice arms the given input for this run without touching the saved
// choice.
func (a *App) ArmDevice(ctx context.Context, id string) error {
	return a.selectDevice(ctx, id, false)
}

func (a *App) selectDevice(ctx context.Context, id string, persist bool) error {
	err := a.rec.SelectDevice(ctx, id)
	if errors.Is(err, recorder.ErrSuperseded) {
		// A later selection owns the session and publishes its own status.
		return err
	}
	if err != nil {
		a.publish(false)
		return a.fail(err)
	}

	if persist {
		if err := a.cfg.SaveDevice(id); err != nil {
			a.log.Warn().Err(err).Msg("Failed to save device choice")
		}
	}
	a.publish(false)
	return nil
}

func (a *App) StartRecording() error {
	if err := a.rec.Start(); err != nil {
		return a.fail(err)
	}
	a.publish(false)
	return nil
}

func (a *App) StopRecording() (*recorder.Clip, error) {
	clip, err := a.rec.Stop()
	if err != nil {
		return nil, a.fail(err)
	}
	a.publish(true)
	return clip, nil
}

// Toggle starts or stops a recording. The clip is nil unless one was saved.
func (a *App) Toggle() (*recorder.Clip, error) {
	if a.rec.State() == recorder.StateRecording {
		return a.StopRecording()
	}
	return nil, a.StartRecording()
}

// OnHotkey toggles recording on key press and ignores key release.
func (a *App) OnHotkey(pressed bool) {
	if !pressed {
		return
	}
	if _, err := a.Toggle(); err != nil {
		a.log.Warn().Err(err).Msg("Hotkey toggle failed")
	}
}

func (a *App) DeleteClip(id string) error {
	if err := a.rec.DeleteClip(id); err != nil {
		return a.fail(err)
	}
	a.publish(true)
	return nil
}

// PlayClip blocks until playback finishes or ctx is done.
func (a *App) PlayClip(ctx context.Context, id string) error {
	a.log.Debug().Str("clip", id).Msg("Playing clip")
	if err := a.rec.PlayClip(ctx, id); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return a.fail(err)
	}
	return nil
}

// ClipInfo describes a clip for display or sharing.
func (a *App) ClipInfo(id string) (share.Info, error) {
	clip, ok := a.rec.Clip(id)
	if !ok {
		return share.Info{}, fmt.Errorf("%w: %s", recorder.ErrClipNotFound, id)
	}
	return share.Info{
		ID:        clip.ID(),
		Device:    clip.Device().Label,
		MimeType:  clip.MimeType(),
		Size:      clip.Size(),
		Duration:  clip.Duration(),
		CreatedAt: clip.CreatedAt(),
	}, nil
}

// CopyClipInfo puts a one-line description of the clip on the clipboard and
// returns it.
func (a *App) CopyClipInfo(ctx context.Context, id string) (string, error) {
	info, err := a.ClipInfo(id)
	if err != nil {
		return "", a.fail(err)
	}
	if a.clipboard == nil {
		return "", a.fail(ErrNoClipboard)
	}

	text := info.Text()
	if err := a.clipboard.WriteText(ctx, text); err != nil {
		return "", a.fail(err)
	}
	a.log.Info().Str("clip", id).Msg("Copied clip info")
	return text, nil
}

// Snapshot returns the recorder state for rendering.
func (a *App) Snapshot() recorder.Snapshot {
	return a.rec.Snapshot()
}

func (a *App) IsRecording() bool {
	return a.rec.State() == recorder.StateRecording
}

// Shutdown keeps any recording in progress as a clip and releases the device.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info().Int("clips", len(a.rec.Clips())).Msg("Shutting down recorder")
	return a.rec.Close()
}
