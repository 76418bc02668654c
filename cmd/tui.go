package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/synchronizer"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play launches the terminal player. The session lives exactly as long as the program runs.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	var refs []models.PlaylistRef
	if cmd.Args().Present() {
		parsed, err := models.ParseRefs(cmd.Args().Slice()...)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		refs = parsed
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	loader, err := r.loader(ctx)
	if err != nil {
		return err
	}

	store := r.newStore(cmd.Bool("shuffle"), cmd.Bool("repeat"))
	defer store.Close()

	sync := synchronizer.New(store, r.adapters(ctx, store))
	sync.Interval = r.config.Player.SyncInterval()
	sync.SeekTolerance = r.config.Player.SeekTolerance()
	sync.Logger = shared.WithLogger(r.logger, "component", "synchronizer", "session", store.ID())

	model := ui.NewModel(ctx, store, sync, loader, refs).WithLogger(r.logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func (r *Runner) newStore(shuffle, repeat bool) *queue.Store {
	store := queue.NewStore(queue.NewState(), queue.WithLogger(shared.WithLogger(r.logger, "component", "queue")))
	if shuffle {
		store.Dispatch(queue.ShuffleOn{})
	}
	if repeat {
		store.Dispatch(queue.RepeatOn{})
	}
	return store
}
