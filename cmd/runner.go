package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bkx/internal/oauth"
	"github.com/desertthunder/bkx/internal/services"
	"github.com/desertthunder/bkx/internal/session"
	"github.com/desertthunder/bkx/internal/shared"
)

// LoginFlow is a [session.LoginFlow] that binds its callback listener on Init and closes Ready once serving.
type LoginFlow interface {
	session.LoginFlow
	Init(ctx context.Context)
	Ready() <-chan struct{}
}

// FlowFactory builds the login flow for one command.
type FlowFactory func(config *shared.Config, logger *log.Logger, showURL func(string)) (LoginFlow, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	gateway    services.Gateway
	newFlow    FlowFactory
	logger     *log.Logger
	output     io.Writer
	errOutput  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Gateway    services.Gateway // built from Config when nil
	NewFlow    FlowFactory
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer // progress and prompts; defaults to os.Stderr
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.NewFlow == nil {
		opts.NewFlow = newCodeFlow
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		gateway:    opts.Gateway,
		newFlow:    opts.NewFlow,
		logger:     opts.Logger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
	}
}

func newCodeFlow(config *shared.Config, logger *log.Logger, showURL func(string)) (LoginFlow, error) {
	if err := config.ValidateOAuth(); err != nil {
		return nil, err
	}
	flow, err := oauth.NewCodeFlow(oauth.Options{
		ClientID:     config.OAuth.ClientID,
		ClientSecret: config.OAuth.ClientSecret,
		RedirectURL:  config.OAuth.RedirectURL,
		PollInterval: config.OAuth.PollInterval.Duration,
		Logger:       logger,
		ShowURL:      showURL,
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "bkx",
		Usage:   "Search books and manage your bookshelves from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, searchCommand, shelvesCommand, shelfCommand, addCommand, removeCommand, exportCommand, tuiCommand,
		configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config file named by --config, applies environment overrides and sets the log level.
//
// The default config path is optional; an explicit one must exist.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	} else if cmd.IsSet("config") {
		return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}

	r.config.ApplyEnv(nil)
	return ctx, nil
}

// gw returns the injected gateway or one built from the config.
func (r *Runner) gw() (services.Gateway, error) {
	if r.gateway != nil {
		return r.gateway, nil
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	r.gateway = services.NewGatewayService(
		r.config.Gateway.BaseURL,
		services.NewHTTPClient(r.config.Gateway.Timeout.Duration),
		r.logger,
	)
	return r.gateway, nil
}

func (r *Runner) write(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// status writes a progress line to the error output so piped results stay clean.
func (r *Runner) status(format string, args ...any) {
	fmt.Fprintf(r.errOutput, format+"\n", args...)
}
