package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bkx/internal/formatter"
	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/session"
	"github.com/desertthunder/bkx/internal/shared"
)

// outputFormat reads --format and --json.
func outputFormat(cmd *cli.Command) (formatter.Format, error) {
	if cmd.Bool("json") {
		return formatter.JSON, nil
	}
	return formatter.ParseFormat(cmd.String("format"))
}

// describe prefixes err with the display message shown to users, unless they already match.
func describe(msg string, err error) error {
	if msg == "" || msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// emit writes data to --output when set, otherwise to the runner's output.
func (r *Runner) emit(cmd *cli.Command, data []byte) error {
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.status("✓ Wrote %s", path)
		return nil
	}
	return r.write(data)
}

// Search queries the public catalog. No sign in is needed.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	searchType, err := models.ParseSearchType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	gw, err := r.gw()
	if err != nil {
		return err
	}

	req := models.SearchRequest{Type: searchType, Query: query}
	search := session.NewSearch(gw, r.logger)
	books, err := search.Run(ctx, req)
	if err != nil {
		return describe(search.Snapshot().Error, err)
	}

	if len(books) == 0 && format != formatter.JSON {
		return r.writePlain("%s\n", session.MsgNoResults)
	}

	data, err := formatter.Books(format, req, books)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}
