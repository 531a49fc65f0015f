package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/petems/micclips/internal/output"
	"github.com/petems/micclips/internal/recorder"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(deps.Stdout)

			rt := start(deps, false, nil)
			defer rt.close(context.Background())

			devices := rt.app.Discover(cmd.Context())
			if len(devices) == 0 {
				formatter.Warning(recorder.NotAccessibleText)
				return nil
			}

			snap := rt.app.Snapshot()
			formatter.DeviceListHeader(rt.host.Name())
			for _, d := range devices {
				formatter.DeviceListItem(d, snap.Armed && d.ID == snap.Selected.ID)
			}
			return nil
		},
	}
}
