package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bkx/internal/shared"
)

// ConfigInit writes the example config to --path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Wrote %s\n", path)
}
