package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bkx/internal/session"
	"github.com/desertthunder/bkx/internal/shared"
	"github.com/desertthunder/bkx/internal/ui"
)

// TUI launches the interactive terminal UI.
//
// Search works without an OAuth client; logging in then reports that the login client is not ready.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	gw, err := r.gw()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.UI.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := session.Options{
		Gateway:    gw,
		Logger:     r.logger,
		ResetDelay: r.config.UI.MutationReset.Duration,
	}
	flow, err := r.newFlow(r.config, r.logger, func(u string) {
		r.logger.Warn("could not open browser", "url", u)
	})
	if err != nil {
		r.logger.Warn("login disabled", "err", err)
	} else {
		flow.Init(ctx)
		opts.Flow = flow
	}

	mgr := session.NewManager(opts)
	model := ui.NewModel(ctx, mgr, session.NewSearch(gw, r.logger), session.NewShelfView(mgr))
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
