package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/config"
	"github.com/petems/micclips/internal/logging"
	"github.com/petems/micclips/internal/share"
	"github.com/petems/micclips/internal/version"
)

type Dependencies struct {
	Config *config.Config
	Stdout io.Writer

	// The constructors below default to the real implementations; tests
	// substitute fakes.
	NewHost      func(cfg config.AudioConfig, log zerolog.Logger) (audio.Host, error)
	NewLogger    func(level string, console bool) zerolog.Logger
	NewClipboard func() share.Clipboard
}

func (d *Dependencies) withDefaults() {
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.NewHost == nil {
		d.NewHost = audio.New
	}
	if d.NewLogger == nil {
		d.NewLogger = func(level string, console bool) zerolog.Logger {
			return logging.New(logging.Options{Level: level, Console: console})
		}
	}
	if d.NewClipboard == nil {
		d.NewClipboard = share.New
	}
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps.withDefaults()

	var (
		backend  string
		device   string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "micclips",
		Short: "Record short microphone clips",
		Long:  "Pick a microphone, record clips, play them back and delete them from a terminal form or the system tray.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			deps.Config.Override(func(c *config.Config) {
				if flags.Changed("backend") {
					c.Audio.Backend = backend
				}
				if flags.Changed("device") {
					c.Audio.DeviceID = device
				}
				if flags.Changed("log-level") {
					c.LogLevel = logLevel
				}
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Config.UI == config.UITray {
				return runTray(cmd.Context(), deps)
			}
			return runTerminal(cmd.Context(), deps)
		},
		SilenceUsage: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.SetOut(deps.Stdout)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&backend, "backend", deps.Config.Audio.Backend, "audio backend (portaudio or malgo)")
	pf.StringVar(&device, "device", deps.Config.Audio.DeviceID, "input device to arm on start")
	pf.StringVar(&logLevel, "log-level", deps.Config.LogLevel, "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(NewTrayCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewCheckCmd(deps))

	return rootCmd
}
