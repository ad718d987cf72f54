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
	"github.com/desertthunder/bkx/internal/tasks"
)

// findShelf looks up a shelf by id in the loaded library.
func findShelf(shelves []models.Shelf, id string) (models.Shelf, error) {
	for _, s := range shelves {
		if s.Key() == id {
			return s, nil
		}
	}
	return models.Shelf{}, fmt.Errorf("%w: %s", shared.ErrShelfNotFound, id)
}

func firstArg(cmd *cli.Command, name string) (string, error) {
	arg := strings.TrimSpace(cmd.Args().First())
	if arg == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return arg, nil
}

// Shelves lists the signed-in user's shelves.
func (r *Runner) Shelves(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	mgr, err := r.signIn(ctx)
	if err != nil {
		return err
	}
	snap, err := library(mgr)
	if err != nil {
		return err
	}

	data, err := formatter.Shelves(format, snap.Shelves)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// Shelf lists the volumes on one shelf.
func (r *Runner) Shelf(ctx context.Context, cmd *cli.Command) error {
	id, err := firstArg(cmd, "shelf id")
	if err != nil {
		return err
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	mgr, err := r.signIn(ctx)
	if err != nil {
		return err
	}
	snap, err := library(mgr)
	if err != nil {
		return err
	}
	shelf, err := findShelf(snap.Shelves, id)
	if err != nil {
		return err
	}

	view := session.NewShelfView(mgr)
	if err := view.Open(ctx, shelf); err != nil {
		return describe(view.Snapshot().Error, err)
	}

	data, err := formatter.Volumes(format, shelf, view.Snapshot().Volumes)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// Add puts a volume on a shelf.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, cmd, (*session.Manager).AddBookToShelf, session.MsgAdded)
}

// Remove takes a volume off a shelf.
func (r *Runner) Remove(ctx context.Context, cmd *cli.Command) error {
	return r.mutate(ctx, cmd, (*session.Manager).RemoveBookFromShelf, session.MsgRemoved)
}

func (r *Runner) mutate(ctx context.Context, cmd *cli.Command, op func(*session.Manager, context.Context, string, string) error, done string) error {
	volumeID, err := firstArg(cmd, "volume id")
	if err != nil {
		return err
	}
	shelfID := cmd.String("shelf")

	mgr, err := r.signIn(ctx)
	if err != nil {
		return err
	}
	snap, err := library(mgr)
	if err != nil {
		return err
	}
	if _, err := findShelf(snap.Shelves, shelfID); err != nil {
		return err
	}

	if err := op(mgr, ctx, volumeID, shelfID); err != nil {
		return describe(session.Message(err), err)
	}

	r.writePlain("%s\n", done)
	if shelf, err := findShelf(mgr.Snapshot().Shelves, shelfID); err == nil {
		r.writePlain("%s\n", shelf.Label())
	}
	return nil
}

// Export writes each shelf to its own file, reporting progress as shelves finish.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	mgr, err := r.signIn(ctx)
	if err != nil {
		return err
	}
	snap, err := library(mgr)
	if err != nil {
		return err
	}

	gw, err := r.gw()
	if err != nil {
		return err
	}
	creds := mgr.Credentials()
	exporter := tasks.NewExporter(func(ctx context.Context, shelfID string) ([]models.Volume, error) {
		return gw.ShelfVolumes(ctx, creds, shelfID)
	})

	prog := make(chan tasks.ProgressUpdate, len(snap.Shelves)*2+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.status("%s", u.Message)
		}
	}()

	result, err := exporter.Export(ctx, prog, snap.Shelves, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("Exported %d of %d shelves to %s\n", result.Successful, result.TotalShelves, result.OutputDirectory)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d shelves failed, see %s", shared.ErrAPIRequest, result.Failed, result.ManifestPath)
	}
	return nil
}
