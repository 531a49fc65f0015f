package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/petems/micclips/internal/hotkey"
	"github.com/petems/micclips/internal/tray"
	"github.com/petems/micclips/internal/version"
)

func NewTrayCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "tray",
		Short: "Run in the system tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), deps)
		},
	}
}

func runTray(ctx context.Context, deps *Dependencies) error {
	rt := start(deps, true, nil)
	defer rt.host.Close()

	trayUI := tray.New(rt.app, version.Version, version.Commit, rt.log)
	rt.app.SetStatusUpdater(trayUI)

	hk, err := hotkey.New()
	if err != nil {
		rt.log.Warn().Err(err).Msg("Global hotkey unavailable")
	} else {
		defer hk.Close()
		accel := deps.Config.PlatformHotkey()
		if err := hk.Register(accel, rt.app.OnHotkey); err != nil {
			rt.log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		} else {
			rt.log.Info().Str("hotkey", accel).Msg("Record hotkey registered")
		}
	}

	rt.log.Info().Msg("micclips starting (tray)")
	// Shutdown runs from the tray's exit handler.
	return trayUI.Run(ctx)
}
