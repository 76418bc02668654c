// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rootCommand builds the mixtape command tree. --config and --verbose apply to every subcommand.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "mixtape",
		Usage:   "Play YouTube videos and Spotify tracks as one queue",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MIXTAPE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.Configure,
		Commands: r.register(),
	}
}

// setupCommand creates the config file and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the database",
		Action: r.Setup,
	}
}

// authCommand handles the Spotify login session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify login session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in to Spotify in the browser",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: loginTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a Spotify session is stored",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored Spotify session",
				Action: r.AuthLogout,
			},
		},
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Remove the stored Spotify session",
		Action: r.AuthLogout,
	}
}

// playCommand launches the terminal player
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Open the terminal player, optionally loading playlists",
		ArgsUsage: "[ref|url|p=...]...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Start with shuffle on",
			},
			&cli.BoolFlag{
				Name:  "repeat",
				Usage: "Start with repeat on",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the player is open",
				Value: "./tmp/mixtape-tui.log",
			},
		},
		Action: r.Play,
	}
}

// queueCommand prints or exports the queue built from refs
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "queue",
		Usage:     "Load playlists and print the resulting queue",
		ArgsUsage: "<ref|url|p=...>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Shuffle the queue",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, json, csv, txt or markdown",
				Value:   "table",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (csv, txt) or directory (markdown)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Queue,
	}
}

// shareCommand encodes refs as a shareable selection
func shareCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "share",
		Usage:     "Encode playlists as a shareable selection",
		ArgsUsage: "<ref|url>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base",
				Usage: "URL to prefix the selection with",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the result to the clipboard",
			},
		},
		Action: r.Share,
	}
}

// cacheCommand inspects the metadata cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local metadata cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Count cached entries per provider",
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Action: r.CacheClear,
			},
		},
	}
}
