package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/urfave/cli/v3"
)

var clipboardWriteAll = clipboard.WriteAll

func writeClipboard(text string) error {
	return clipboardWriteAll(text)
}

// Share prints refs as the p=... selection, optionally behind a base URL, and copies it on request.
func (r *Runner) Share(ctx context.Context, cmd *cli.Command) error {
	refs, err := r.refsFromArgs(cmd)
	if err != nil {
		return err
	}

	selection := models.EncodeRefs(refs)
	if base := cmd.String("base"); base != "" {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		selection = base + sep + selection
	}

	if cmd.Bool("copy") {
		if err := r.clipboard(selection); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		r.logger.Debug("selection copied", "refs", len(refs))
	}
	return r.writePlain("%s\n", selection)
}
