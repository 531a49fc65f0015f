package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petems/micclips/internal/output"
	"github.com/petems/micclips/internal/recorder"
)

var errNoInput = errors.New(recorder.NotAccessibleText)

func NewCheckCmd(deps *Dependencies) *cobra.Command {
	var (
		duration time.Duration
		play     bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Record a short test clip from the selected microphone",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(deps.Stdout)

			rt := start(deps, false, nil)
			defer rt.close(context.Background())

			ctx := cmd.Context()
			devices := rt.app.Discover(ctx)
			if len(devices) == 0 {
				formatter.Warning(recorder.NotAccessibleText)
				return errNoInput
			}

			// Fall back to the first input when no saved device was armed.
			// The saved choice is left alone.
			if !rt.app.Snapshot().Armed {
				if err := rt.app.ArmDevice(ctx, devices[0].ID); err != nil {
					return fmt.Errorf("selecting %s: %w", devices[0].Label, err)
				}
			}
			device := rt.app.Snapshot().Selected

			formatter.Recording(device.Label, duration)
			if err := rt.app.StartRecording(); err != nil {
				return err
			}

			select {
			case <-time.After(duration):
			case <-ctx.Done():
			}

			clip, err := rt.app.StopRecording()
			if err != nil {
				return err
			}
			formatter.RecordingStopped(clip.Duration(), clip.Size())
			if clip.Size() == 0 {
				formatter.Warning("No audio was captured")
				return nil
			}

			if play && ctx.Err() == nil {
				formatter.Playing()
				if err := rt.app.PlayClip(ctx, clip.ID()); err != nil {
					return err
				}
			}
			formatter.Success(fmt.Sprintf("%s is working", device.Label))
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "how long to record")
	cmd.Flags().BoolVar(&play, "play", false, "play the clip back on the default output")
	return cmd
}
