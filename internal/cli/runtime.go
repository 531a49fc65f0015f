package cli

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/petems/micclips/internal/app"
	"github.com/petems/micclips/internal/audio"
	"github.com/petems/micclips/internal/recorder"
	"github.com/petems/micclips/internal/tui"
)

// runtime is the wired object graph behind every command.
type runtime struct {
	app  *app.App
	host audio.Host
	log  zerolog.Logger
}

// start builds the host, recorder and app. A backend that fails to start
// degrades to a host with no devices.
func start(deps *Dependencies, console bool, status app.StatusUpdater) *runtime {
	cfg := deps.Config
	log := deps.NewLogger(cfg.LogLevel, console)

	host, err := deps.NewHost(cfg.Audio, log)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Audio.Backend).Msg("Failed to initialize audio")
		host = audio.Unsupported(err)
	}

	rec := recorder.New(host, recorder.Options{
		Timeslice: cfg.Recorder.Timeslice(),
		Logger:    log.With().Str("component", "recorder").Logger(),
	})

	application := app.New(app.Config{
		Recorder:      rec,
		Clipboard:     deps.NewClipboard(),
		Config:        cfg,
		Logger:        log,
		StatusUpdater: status,
	})

	return &runtime{app: application, host: host, log: log}
}

func (r *runtime) close(ctx context.Context) {
	if err := r.app.Shutdown(ctx); err != nil {
		r.log.Error().Err(err).Msg("Shutdown error")
	}
	if err := r.host.Close(); err != nil {
		r.log.Warn().Err(err).Msg("Failed to close audio host")
	}
}

func runTerminal(ctx context.Context, deps *Dependencies) error {
	// The terminal UI owns the screen, so logs only go to the file.
	rt := start(deps, false, nil)
	defer rt.close(context.Background())

	rt.log.Info().Msg("micclips starting (terminal)")
	return tui.Run(ctx, rt.app)
}
