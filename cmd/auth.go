package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bkx/internal/formatter"
	"github.com/desertthunder/bkx/internal/session"
	"github.com/desertthunder/bkx/internal/shared"
)

const readyTimeout = 10 * time.Second

// signIn runs the interactive login and returns a signed-in session with its library loaded.
//
// Tokens live only in the returned manager, so each command signs in on its own.
func (r *Runner) signIn(ctx context.Context) (*session.Manager, error) {
	gw, err := r.gw()
	if err != nil {
		return nil, err
	}

	flow, err := r.newFlow(r.config, r.logger, func(u string) {
		r.status("⚠ Could not open browser automatically.")
		r.status("Please open this URL in your browser:\n%s", u)
	})
	if err != nil {
		return nil, err
	}

	flow.Init(ctx)
	select {
	case <-flow.Ready():
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(readyTimeout):
		return nil, fmt.Errorf("%w: %s", shared.ErrLoginNotReady, session.MsgLoginNotReady)
	}

	mgr := session.NewManager(session.Options{
		Gateway:    gw,
		Flow:       flow,
		Logger:     r.logger,
		ResetDelay: r.config.UI.MutationReset.Duration,
	})

	r.status("→ Opening browser for Google sign in...")
	mgr.Login(ctx)

	snap := mgr.Snapshot()
	if !snap.SignedIn() {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, snap.AuthError)
	}
	r.status("✓ Signed in as %s", snap.Identity.DisplayName())
	return mgr, nil
}

// library returns the loaded shelves or the library error.
func library(mgr *session.Manager) (session.Snapshot, error) {
	snap := mgr.Snapshot()
	if snap.LibraryError != "" {
		return snap, fmt.Errorf("%w: %s", shared.ErrAPIRequest, snap.LibraryError)
	}
	return snap, nil
}

// Login signs in and prints the shelves.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	mgr, err := r.signIn(ctx)
	if err != nil {
		return err
	}

	snap, err := library(mgr)
	if err != nil {
		return err
	}

	id := snap.Identity
	r.writePlain("Name:  %s\n", id.DisplayName())
	if id.Email != "" {
		r.writePlain("Email: %s\n", id.Email)
	}
	r.writePlain("\n")

	data, err := formatter.Shelves(formatter.Text, snap.Shelves)
	if err != nil {
		return err
	}
	return r.write(data)
}
