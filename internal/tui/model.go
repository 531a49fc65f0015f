// Package tui is the terminal front end: a device picker, the Record/Stop
// control and the list of recorded files.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/petems/micclips/internal/app"
	"github.com/petems/micclips/internal/recorder"
	"github.com/petems/micclips/internal/share"
)

// NoDeviceAlert is shown when Record is pressed before a microphone is chosen.
const NoDeviceAlert = "No microphone selected. Choose an input device before recording."

type focus int

const (
	focusDevices focus = iota
	focusClips
)

type (
	discoveredMsg struct{}
	rescannedMsg  struct{ err error }
	selectedMsg   struct {
		id  string
		err error
	}
	playedMsg struct {
		id  string
		err error
	}
	copiedMsg struct {
		text string
		err  error
	}
)

type Model struct {
	ctx  context.Context
	app  *app.App
	snap recorder.Snapshot

	focus      focus
	devCursor  int
	clipCursor int
	pending    string // device being acquired
	playing    map[string]bool

	alert  string
	notice string

	keys     keyMap
	help     help.Model
	width    int
	quitting bool
}

func New(ctx context.Context, a *app.App) Model {
	return Model{
		ctx:     ctx,
		app:     a,
		snap:    a.Snapshot(),
		playing: make(map[string]bool),
		keys:    keys,
		help:    help.New(),
		width:   80,
	}
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(New(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return m.discover
}

func (m Model) discover() tea.Msg {
	m.app.Discover(m.ctx)
	return discoveredMsg{}
}

func (m Model) rescan() tea.Msg {
	_, err := m.app.Rediscover(m.ctx)
	return rescannedMsg{err: err}
}

func (m Model) selectDevice(id string) tea.Cmd {
	return func() tea.Msg {
		return selectedMsg{id: id, err: m.app.SelectDevice(m.ctx, id)}
	}
}

func (m Model) play(id string) tea.Cmd {
	return func() tea.Msg {
		return playedMsg{id: id, err: m.app.PlayClip(m.ctx, id)}
	}
}

func (m Model) copyInfo(id string) tea.Cmd {
	return func() tea.Msg {
		text, err := m.app.CopyClipInfo(m.ctx, id)
		return copiedMsg{text: text, err: err}
	}
}

func (m *Model) refresh() {
	m.snap = m.app.Snapshot()
	if m.devCursor >= len(m.snap.Devices) {
		m.devCursor = max(0, len(m.snap.Devices)-1)
	}
	if m.clipCursor >= len(m.snap.Clips) {
		m.clipCursor = max(0, len(m.snap.Clips)-1)
	}
	if len(m.snap.Clips) == 0 {
		m.focus = focusDevices
	}
}

func (m *Model) showError(err error) {
	switch {
	case errors.Is(err, recorder.ErrNoRecorder):
		m.alert = NoDeviceAlert
	case errors.Is(err, share.ErrUnsupported):
		m.alert = "Clipboard not available on this system."
	default:
		m.alert = err.Error()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case discoveredMsg:
		m.refresh()
		for i, d := range m.snap.Devices {
			if m.snap.Armed && d.ID == m.snap.Selected.ID {
				m.devCursor = i
			}
		}
		return m, nil

	case rescannedMsg:
		m.refresh()
		if msg.err != nil {
			m.showError(msg.err)
		}
		return m, nil

	case selectedMsg:
		if m.pending == msg.id {
			m.pending = ""
		}
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, recorder.ErrSuperseded) {
			m.showError(msg.err)
		}
		return m, nil

	case playedMsg:
		delete(m.playing, msg.id)
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.showError(msg.err)
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.showError(msg.err)
			return m, nil
		}
		m.notice = "Copied: " + msg.text
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	// The alert is modal: the next key only dismisses it.
	if m.alert != "" {
		m.alert = ""
		return m, nil
	}
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Switch):
		if m.focus == focusDevices && len(m.snap.Clips) > 0 {
			m.focus = focusClips
		} else {
			m.focus = focusDevices
		}

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Select):
		return m.activate()

	case key.Matches(msg, m.keys.Record):
		m.toggleRecording()

	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.currentClip(); ok {
			if err := m.app.DeleteClip(id); err != nil {
				m.showError(err)
			}
			m.refresh()
		}

	case key.Matches(msg, m.keys.Copy):
		if id, ok := m.currentClip(); ok {
			return m, m.copyInfo(id)
		}

	case key.Matches(msg, m.keys.Rescan):
		return m, m.rescan
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.focus {
	case focusDevices:
		if m.snap.State == recorder.StateRecording {
			return
		}
		m.devCursor = clamp(m.devCursor+delta, len(m.snap.Devices))
	case focusClips:
		m.clipCursor = clamp(m.clipCursor+delta, len(m.snap.Clips))
	}
}

func clamp(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m Model) currentClip() (string, bool) {
	if m.focus != focusClips || len(m.snap.Clips) == 0 {
		return "", false
	}
	return m.snap.Clips[m.clipCursor].ID(), true
}

// activate arms the highlighted device or plays the highlighted file.
func (m Model) activate() (tea.Model, tea.Cmd) {
	if m.focus == focusClips {
		id, ok := m.currentClip()
		if !ok || m.playing[id] {
			return m, nil
		}
		m.playing[id] = true
		return m, m.play(id)
	}

	// Device selection is locked while recording.
	if m.snap.State == recorder.StateRecording || len(m.snap.Devices) == 0 {
		return m, nil
	}
	id := m.snap.Devices[m.devCursor].ID
	m.pending = id
	return m, m.selectDevice(id)
}

func (m *Model) toggleRecording() {
	recording := m.snap.State == recorder.StateRecording
	// Neither control is offered when no device is available.
	if !recording && len(m.snap.Devices) == 0 {
		return
	}

	var err error
	if recording {
		var clip *recorder.Clip
		clip, err = m.app.StopRecording()
		if clip != nil {
			m.notice = fmt.Sprintf("Saved %s", clip.Duration().Round(10*time.Millisecond))
		}
	} else {
		err = m.app.StartRecording()
	}
	if err != nil {
		m.showError(err)
	}
	m.refresh()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Mic Clips"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Input Audio"))
	b.WriteString("\n")
	m.renderDevices(&b)

	b.WriteString("\n")
	m.renderControl(&b)

	b.WriteString(sectionStyle.Render("Audio Files"))
	b.WriteString("\n")
	m.renderClips(&b)

	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(alertStyle.Render(m.alert + "\n" + dimStyle.Render("press any key")))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderDevices(b *strings.Builder) {
	if !m.snap.Discovered {
		b.WriteString(dimStyle.Render("  Looking for microphones..."))
		b.WriteString("\n")
		return
	}
	if len(m.snap.Devices) == 0 {
		b.WriteString(dimStyle.Render("  (none)"))
		b.WriteString("\n")
		return
	}

	locked := m.snap.State == recorder.StateRecording
	for i, d := range m.snap.Devices {
		marker := "  "
		if m.snap.Armed && d.ID == m.snap.Selected.ID {
			marker = armedStyle.Render("● ")
		}
		label := d.Label
		if d.ID == m.pending {
			label += dimStyle.Render(" (opening)")
		}

		line := marker + label
		switch {
		case locked:
			line = dimStyle.Render(line)
		case m.focus == focusDevices && i == m.devCursor:
			line = selectedStyle.Render(line)
		default:
			line = normalStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
}

func (m Model) renderControl(b *strings.Builder) {
	switch {
	case m.snap.State == recorder.StateRecording:
		b.WriteString(stopButtonStyle.Render("[ Stop ]"))
		b.WriteString(" ")
		b.WriteString(recordingStyle.Render("● recording " + m.snap.Selected.Label))
		b.WriteString("\n")
	case len(m.snap.Devices) > 0:
		b.WriteString(recordButtonStyle.Render("[ Record ]"))
		b.WriteString("\n")
	case m.snap.Discovered:
		b.WriteString(warningStyle.Render(recorder.NotAccessibleText))
		b.WriteString("\n")
	}
}

func (m Model) renderClips(b *strings.Builder) {
	if len(m.snap.Clips) == 0 {
		b.WriteString(dimStyle.Render("  No recordings yet"))
		b.WriteString("\n")
		return
	}

	for i, c := range m.snap.Clips {
		line := fmt.Sprintf("%2d. %s  %-20s %8s %10s",
			i+1,
			c.CreatedAt().Format("15:04:05"),
			truncate(c.Device().Label, 20),
			c.Duration().Round(10*time.Millisecond),
			share.HumanSize(c.Size()),
		)
		if m.playing[c.ID()] {
			line += " ▶"
		}
		if m.focus == focusClips && i == m.clipCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n-1 {
		r = r[:n-1]
	}
	return string(r) + "…"
}
