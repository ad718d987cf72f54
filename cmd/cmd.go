// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown, csv or json",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON (same as --format json)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}
}

// loginCommand signs in and prints the library.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Sign in with Google and show your shelves",
		Action: r.Login,
	}
}

// searchCommand runs a public catalog search.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search the book catalog",
		ArgsUsage: "<query>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Search by: general, intitle or inauthor",
				Value:   "general",
			},
		}, formatFlags()...),
		Action: r.Search,
	}
}

// shelvesCommand lists the signed-in user's shelves.
func shelvesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "shelves",
		Aliases: []string{"library"},
		Usage:   "List your bookshelves",
		Flags:   formatFlags(),
		Action:  r.Shelves,
	}
}

// shelfCommand lists the books on one shelf.
func shelfCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "shelf",
		Usage:     "List the books on a shelf",
		ArgsUsage: "<shelf id>",
		Flags:     formatFlags(),
		Action:    r.Shelf,
	}
}

func mutationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "shelf",
			Usage:    "Shelf ID",
			Required: true,
		},
	}
}

// addCommand puts a volume on a shelf.
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a book to a shelf",
		ArgsUsage: "<volume id>",
		Flags:     mutationFlags(),
		Action:    r.Add,
	}
}

// removeCommand takes a volume off a shelf.
func removeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove a book from a shelf",
		ArgsUsage: "<volume id>",
		Flags:     mutationFlags(),
		Action:    r.Remove,
	}
}

// exportCommand writes every shelf to disk.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every shelf to files, one per shelf, plus a manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "markdown",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory (default: library_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of shelves fetched concurrently",
				Value: 4,
			},
		},
		Action: r.Export,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}

// configCommand manages the config file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the file",
						Value: "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}
