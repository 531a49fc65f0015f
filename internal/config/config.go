package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"

	UITerminal = "tui"
	UITray     = "tray"
)

type Config struct {
	LogLevel     string         `json:"log_level"`
	UI           string         `json:"ui"` // "tui" or "tray"
	Hotkey       string         `json:"hotkey"`
	HotkeyDarwin string         `json:"hotkey_darwin"`
	Audio        AudioConfig    `json:"audio"`
	Recorder     RecorderConfig `json:"recorder"`

	path string
	// file holds the values read from disk and overridden the values after
	// env and flag overrides. Save writes file values for overridden fields.
	file       *Config
	overridden *Config
}

type AudioConfig struct {
	Backend    string `json:"backend"`   // "portaudio" or "malgo"
	DeviceID   string `json:"device_id"` // preferred input, armed on start when present
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type RecorderConfig struct {
	TimesliceMS int `json:"timeslice_ms"`
}

// Timeslice is how often the capture backend hands over a fragment.
func (c RecorderConfig) Timeslice() time.Duration {
	if c.TimesliceMS <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration(c.TimesliceMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		UI:           UITerminal,
		Hotkey:       "Alt+R",
		HotkeyDarwin: "Ctrl+R",
		Audio: AudioConfig{
			Backend:    BackendPortAudio,
			DeviceID:   "",
			SampleRate: 48000,
			Channels:   1,
		},
		Recorder: RecorderConfig{
			TimesliceMS: 10,
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads the config at path over the defaults. A missing file is not
// an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Override(applyEnvOverrides)
	return cfg, nil
}

// Override applies a change for this run only. Fields it touches keep their
// file value on Save unless they are changed again afterwards.
func (c *Config) Override(apply func(*Config)) {
	if c.file == nil {
		c.file = c.snapshot()
	}
	apply(c)
	c.overridden = c.snapshot()
}

func (c *Config) snapshot() *Config {
	s := *c
	s.file, s.overridden = nil, nil
	return &s
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MICCLIPS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MICCLIPS_BACKEND"); v != "" {
		cfg.Audio.Backend = v
	}
	if v := os.Getenv("MICCLIPS_DEVICE"); v != "" {
		cfg.Audio.DeviceID = v
	}
	if v := os.Getenv("MICCLIPS_HOTKEY"); v != "" {
		cfg.Hotkey = v
		cfg.HotkeyDarwin = v
	}
	if v := os.Getenv("MICCLIPS_TIMESLICE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Recorder.TimesliceMS = ms
		}
	}
}

// PlatformHotkey returns the record toggle accelerator for the current
// platform. It is only registered by the tray front end.
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// Path returns the file the config was loaded from and is saved to.
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// SaveDevice remembers id as the preferred input and writes the config.
func (c *Config) SaveDevice(id string) error {
	c.Audio.DeviceID = id
	if c.file != nil {
		c.file.Audio.DeviceID = id
		c.overridden.Audio.DeviceID = id
	}
	return c.Save()
}

// persisted is c with every still-overridden field put back to its file value.
func (c *Config) persisted() Config {
	out := *c
	if c.file == nil {
		return out
	}
	f, o := c.file, c.overridden
	keepFile(&out.LogLevel, o.LogLevel, f.LogLevel)
	keepFile(&out.UI, o.UI, f.UI)
	keepFile(&out.Hotkey, o.Hotkey, f.Hotkey)
	keepFile(&out.HotkeyDarwin, o.HotkeyDarwin, f.HotkeyDarwin)
	keepFile(&out.Audio.Backend, o.Audio.Backend, f.Audio.Backend)
	keepFile(&out.Audio.DeviceID, o.Audio.DeviceID, f.Audio.DeviceID)
	keepFile(&out.Audio.SampleRate, o.Audio.SampleRate, f.Audio.SampleRate)
	keepFile(&out.Audio.Channels, o.Audio.Channels, f.Audio.Channels)
	keepFile(&out.Recorder.TimesliceMS, o.Recorder.TimesliceMS, f.Recorder.TimesliceMS)
	return out
}

func keepFile[T comparable](cur *T, overridden, file T) {
	if *cur == overridden {
		*cur = file
	}
}

// Save writes the config to disk. Values that only came from the environment
// or command line flags are not written.
func (c *Config) Save() error {
	path := c.Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out := c.persisted()
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "micclips", "config.json")
}

// LogPath returns the platform-specific log file path
func LogPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "micclips", "micclips.log")
}
