package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Queue loads refs, installs them in a fresh session and prints the resulting play order.
func (r *Runner) Queue(ctx context.Context, cmd *cli.Command) error {
	refs, err := r.refsFromArgs(cmd)
	if err != nil {
		return err
	}

	loader, err := r.loader(ctx)
	if err != nil {
		return err
	}

	var result *tasks.LoadResult
	err = r.withSpinner(ctx, "Loading playlists...", func(ctx context.Context) error {
		res, err := loader.Load(ctx, nil, refs)
		result = res
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}
	for _, f := range result.Failed {
		r.logger.Warn("playlist skipped", "ref", f.Ref, "error", f.Err)
	}

	store := r.newStore(cmd.Bool("shuffle"), false)
	defer store.Close()
	s := store.Dispatch(result.Intent(), queue.CloseEditor{})

	return r.writeQueue(s, cmd.String("format"), cmd.String("output"), cmd.Bool("pretty"))
}

func (r *Runner) writeQueue(s queue.State, format, output string, pretty bool) error {
	format = strings.ToLower(format)
	switch format {
	case "", "table":
		formatter.WriteQueueTable(r.output, s)
		return nil
	case "json":
		return r.writeJSON(queueJSON(s), pretty)
	case "markdown", "md":
		res, err := formatter.WriteMarkdownExport(s, output, r.httpClient, func(err error) {
			r.logger.Warn("cover download failed", "error", err)
		})
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d files to %s\n", len(res.Files), res.Directory)
	case "csv", "txt", "text":
		if output == "" {
			return r.writeExportTo(s, format)
		}
		if err := formatter.WriteExport(s, format, output); err != nil {
			return err
		}
		return r.writePlain("✓ Exported to %s\n", output)
	}
	return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

func (r *Runner) writeExportTo(s queue.State, format string) error {
	var (
		data []byte
		err  error
	)
	if format == "csv" {
		data, err = formatter.ExportToCSV(s)
	} else {
		data, err = formatter.ExportToText(s)
	}
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

type queueEntry struct {
	Position   int    `json:"position"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	DurationMS int    `json:"duration_ms"`
	Current    bool   `json:"current,omitempty"`
}

type queueOutput struct {
	Selection string       `json:"selection"`
	Shuffle   bool         `json:"shuffle"`
	Queue     []queueEntry `json:"queue"`
}

func queueJSON(s queue.State) queueOutput {
	rows := formatter.Rows(s)
	out := queueOutput{
		Selection: models.EncodeRefs(s.Refs()),
		Shuffle:   s.IsShuffleOn,
		Queue:     make([]queueEntry, len(rows)),
	}
	for i, row := range rows {
		out.Queue[i] = queueEntry{
			Position:   row.Position,
			ID:         row.ID.String(),
			Title:      row.Title,
			Artist:     row.Artist,
			DurationMS: row.Duration,
			Current:    row.Current,
		}
	}
	return out
}

func (r *Runner) refsFromArgs(cmd *cli.Command) ([]models.PlaylistRef, error) {
	if !cmd.Args().Present() {
		return nil, fmt.Errorf("%w: at least one playlist reference", shared.ErrMissingArgument)
	}
	refs, err := models.ParseRefs(cmd.Args().Slice()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return refs, nil
}

// withSpinner runs fn behind a spinner when writing to the terminal, and plainly otherwise.
func (r *Runner) withSpinner(ctx context.Context, title string, fn func(context.Context) error) error {
	if r.output != os.Stdout {
		return fn(ctx)
	}
	return spinner.New().Title(title).Context(ctx).ActionWithErr(fn).Run()
}
