package tray

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/app"
	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/recorder"
	"github.com/petems/micclips/internal/share"
)

type status string

const (
	statusIdle      status = "idle"
	statusArmed     status = "armed"
	statusRecording status = "recording"
	statusError     status = "error"
)

type deviceSlot struct {
	item *systray.MenuItem
	id   string
}

type clipSlot struct {
	item  *systray.MenuItem
	play  *systray.MenuItem
	del   *systray.MenuItem
	copy  *systray.MenuItem
	id    string
	shown bool
}

// UI is the menu bar front end. It implements app.StatusUpdater.
type UI struct {
	app     *app.App
	version string
	commit  string
	log     zerolog.Logger
	ctx     context.Context

	mu      sync.Mutex
	ready   bool
	status  status
	detail  string
	clips   []*recorder.Clip
	devices []deviceSlot
	slots   []*clipSlot

	// Menu items
	mStatus  *systray.MenuItem
	mRecord  *systray.MenuItem
	mDevices *systray.MenuItem
	mNone    *systray.MenuItem
	mClips   *systray.MenuItem
	mEmpty   *systray.MenuItem
	mRescan  *systray.MenuItem
}

func New(application *app.App, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:     application,
		version: version,
		commit:  commit,
		log:     log.With().Str("ui", "tray").Logger(),
		status:  statusIdle,
	}
}

// Status update methods for the app to call

func (u *UI) SetIdle() {
	u.updateStatus(statusIdle, "")
}

func (u *UI) SetArmed(device string) {
	u.updateStatus(statusArmed, device)
}

func (u *UI) SetRecording() {
	u.updateStatus(statusRecording, "")
}

func (u *UI) SetError(err error) {
	u.updateStatus(statusError, errorText(err))
}

func (u *UI) SetClips(clips []*recorder.Clip) {
	u.mu.Lock()
	u.clips = clips
	ready := u.ready
	u.mu.Unlock()

	if ready {
		u.renderClips()
	}
}

// Run blocks on the platform event loop. It MUST be called from the main
// goroutine.
func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTitle(statusTitle(statusIdle))
	systray.SetTooltip("Record microphone clips")

	u.mStatus = systray.AddMenuItem("Looking for microphones...", "")
	u.mStatus.Disable()
	systray.AddSeparator()

	u.mRecord = systray.AddMenuItem("Record", "Start or stop a recording")
	u.mRecord.Disable()

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio input")
	u.mNone = u.mDevices.AddSubMenuItem(recorder.NotAccessibleText, "")
	u.mNone.Disable()
	u.mNone.Hide()

	u.mClips = systray.AddMenuItem("Audio Files", "Recorded clips")
	u.mEmpty = u.mClips.AddSubMenuItem("No recordings yet", "")
	u.mEmpty.Disable()

	systray.AddSeparator()
	u.mRescan = systray.AddMenuItem("Rescan Microphones", "Refresh the device list")
	mAbout := systray.AddMenuItem(fmt.Sprintf("micclips %s (%s)", u.version, u.commit), "")
	mAbout.Disable()
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.mu.Unlock()

	go u.handleEvents(mQuit)
	go u.discover()
}

func (u *UI) discover() {
	devices := u.app.Discover(u.ctx)
	u.renderDevices(devices)
	u.renderStatus()
}

func (u *UI) handleEvents(mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mRecord.ClickedCh:
			if _, err := u.app.Toggle(); err != nil {
				u.log.Warn().Err(err).Msg("Record toggle failed")
			}
		case <-u.mRescan.ClickedCh:
			devices, err := u.app.Rediscover(u.ctx)
			if err != nil {
				u.log.Warn().Err(err).Msg("Rescan failed")
				continue
			}
			u.renderDevices(devices)
			u.renderStatus()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) renderDevices(devices []audio.Device) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for len(u.devices) < len(devices) {
		slot := deviceSlot{item: u.mDevices.AddSubMenuItem("", "")}
		u.devices = append(u.devices, slot)
		go u.watchDevice(len(u.devices) - 1)
	}

	selected := u.app.Snapshot().Selected
	for i := range u.devices {
		slot := &u.devices[i]
		if i >= len(devices) {
			slot.id = ""
			slot.item.Hide()
			continue
		}
		slot.id = devices[i].ID
		slot.item.SetTitle(devices[i].Label)
		if devices[i].ID == selected.ID {
			slot.item.Check()
		} else {
			slot.item.Uncheck()
		}
		slot.item.Show()
	}

	if len(devices) == 0 {
		u.mNone.Show()
	} else {
		u.mNone.Hide()
	}
}

func (u *UI) watchDevice(i int) {
	u.mu.Lock()
	item := u.devices[i].item
	u.mu.Unlock()

	for range item.ClickedCh {
		u.mu.Lock()
		id := u.devices[i].id
		u.mu.Unlock()
		if id == "" {
			continue
		}

		err := u.app.SelectDevice(u.ctx, id)
		if errors.Is(err, recorder.ErrSuperseded) {
			continue
		}
		if err != nil {
			u.log.Warn().Err(err).Str("device", id).Msg("Failed to select device")
		}
		u.renderDevices(u.app.Snapshot().Devices)
	}
}

func (u *UI) renderClips() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for len(u.slots) < len(u.clips) {
		item := u.mClips.AddSubMenuItem("", "")
		slot := &clipSlot{
			item: item,
			play: item.AddSubMenuItem("Play", "Play on the default output"),
			del:  item.AddSubMenuItem("Delete", "Remove this recording"),
			copy: item.AddSubMenuItem("Copy Info", "Copy details to the clipboard"),
		}
		u.slots = append(u.slots, slot)
		go u.watchClip(slot)
	}

	for i, slot := range u.slots {
		if i >= len(u.clips) {
			slot.id = ""
			if slot.shown {
				slot.item.Hide()
				slot.shown = false
			}
			continue
		}
		c := u.clips[i]
		slot.id = c.ID()
		slot.item.SetTitle(clipTitle(i, c.CreatedAt(), c.Device().Label, c.Duration()))
		if !slot.shown {
			slot.item.Show()
			slot.shown = true
		}
	}

	if len(u.clips) == 0 {
		u.mEmpty.Show()
	} else {
		u.mEmpty.Hide()
	}
}

func (u *UI) watchClip(slot *clipSlot) {
	current := func() string {
		u.mu.Lock()
		defer u.mu.Unlock()
		return slot.id
	}

	for {
		select {
		case <-slot.play.ClickedCh:
			if id := current(); id != "" {
				go func() {
					if err := u.app.PlayClip(u.ctx, id); err != nil {
						u.log.Warn().Err(err).Str("clip", id).Msg("Playback failed")
					}
				}()
			}
		case <-slot.del.ClickedCh:
			if id := current(); id != "" {
				if err := u.app.DeleteClip(id); err != nil {
					u.log.Warn().Err(err).Str("clip", id).Msg("Delete failed")
				}
			}
		case <-slot.copy.ClickedCh:
			if id := current(); id != "" {
				if _, err := u.app.CopyClipInfo(u.ctx, id); err != nil {
					u.log.Warn().Err(err).Str("clip", id).Msg("Copy failed")
				}
			}
		}
	}
}

func (u *UI) onExit() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := u.app.Shutdown(ctx); err != nil {
		u.log.Error().Err(err).Msg("Shutdown error")
	}
}

func (u *UI) updateStatus(s status, detail string) {
	u.mu.Lock()
	u.status = s
	u.detail = detail
	ready := u.ready
	u.mu.Unlock()

	if ready {
		u.renderStatus()
	}
}

// renderStatus sets the tray title and enables the controls that apply.
func (u *UI) renderStatus() {
	u.mu.Lock()
	s, detail := u.status, u.detail
	devices := u.devices
	u.mu.Unlock()

	systray.SetTitle(statusTitle(s))
	u.mStatus.SetTitle(statusLine(s, detail))

	snap := u.app.Snapshot()
	recording := snap.State == recorder.StateRecording
	switch {
	case recording:
		u.mRecord.SetTitle("Stop")
		u.mRecord.Enable()
	case len(snap.Devices) > 0:
		u.mRecord.SetTitle("Record")
		u.mRecord.Enable()
	default:
		u.mRecord.SetTitle("Record")
		u.mRecord.Disable()
	}

	// Device selection is locked while recording.
	for _, slot := range devices {
		if recording {
			slot.item.Disable()
		} else {
			slot.item.Enable()
		}
	}
}

// statusTitle returns the tray title with microphone emoji and status indicator
func statusTitle(s status) string {
	return "🎤 " + emojiForStatus(s)
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(s status) string {
	switch s {
	case statusRecording:
		return "🔴"
	case statusArmed:
		return "🟢"
	case statusError:
		return "🟡"
	default:
		return "⚪️"
	}
}

func statusLine(s status, detail string) string {
	switch s {
	case statusRecording:
		return "Recording..."
	case statusArmed:
		return "Ready: " + detail
	case statusError:
		return "Error: " + detail
	default:
		return "No microphone selected"
	}
}

func clipTitle(i int, createdAt time.Time, device string, d time.Duration) string {
	return fmt.Sprintf("%d. %s  %s  (%s)", i+1, createdAt.Format("15:04:05"), device, d.Round(10*time.Millisecond))
}

func errorText(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, recorder.ErrNoRecorder):
		return "choose a microphone first"
	case errors.Is(err, recorder.ErrRecordingInProgress):
		return "stop recording to change microphone"
	case errors.Is(err, share.ErrUnsupported):
		return "clipboard not available"
	default:
		return err.Error()
	}
}
