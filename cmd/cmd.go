// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles server connections and authentication.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage server connections",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with username and password",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "server",
						Usage:    "Server base URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Password",
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "oidc",
				Usage: "Authenticate through the server's SSO provider",
				Commands: []*cli.Command{
					{
						Name:  "begin",
						Usage: "Print the authorization URL and PKCE verifier",
						Flags: []cli.Flag{
							configFlag(),
							&cli.StringFlag{
								Name:     "server",
								Usage:    "Server base URL",
								Required: true,
							},
						},
						Action: r.AuthOIDCBegin,
					},
					{
						Name:  "complete",
						Usage: "Exchange the authorization code for tokens",
						Flags: []cli.Flag{
							configFlag(),
							&cli.StringFlag{
								Name:     "server",
								Usage:    "Server base URL",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "code",
								Usage:    "Authorization code from the redirect",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "verifier",
								Usage:    "PKCE verifier printed by 'auth oidc begin'",
								Required: true,
							},
						},
						Action: r.AuthOIDCComplete,
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List stored server connections",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthList,
			},
			{
				Name:  "switch",
				Usage: "Make a stored connection the active one",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthSwitch,
			},
			{
				Name:  "alias",
				Usage: "Set a display alias on a stored connection",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "alias"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthAlias,
			},
			{
				Name:  "logout",
				Usage: "Remove a stored connection",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// playCommand drives a playback session from the terminal.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a library item, syncing progress to the server",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "item"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "seconds",
				Usage: "How long to play before stopping (0 plays until interrupted)",
				Value: 0,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playback rate",
				Value: 1.0,
			},
		},
		Action: r.Play,
	}
}

// sessionCommand manages the playback session lifecycle directly.
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Playback session operations",
		Commands: []*cli.Command{
			{
				Name:   "close",
				Usage:  "Close the last known session (including one left open by a crash)",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SessionClose,
			},
			{
				Name:   "status",
				Usage:  "Show local progress records",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SessionStatus,
			},
		},
	}
}

// bookmarkCommand handles bookmark operations.
func bookmarkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "bookmarks",
		Aliases: []string{"bm"},
		Usage:   "Bookmark operations",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a bookmark (stored locally, pushed in the background)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "time",
						Usage:    "Position in seconds",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Bookmark title",
					},
				},
				Action: r.BookmarkAdd,
			},
			{
				Name:  "retitle",
				Usage: "Change a bookmark's title",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "time",
						Usage:    "Position in seconds",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "New title",
						Required: true,
					},
				},
				Action: r.BookmarkRetitle,
			},
			{
				Name:  "delete",
				Usage: "Delete a bookmark locally and on the server",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:     "time",
						Usage:    "Position in seconds",
						Required: true,
					},
				},
				Action: r.BookmarkDelete,
			},
			{
				Name:  "list",
				Usage: "List local bookmarks with sync status",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "book",
						Usage: "Restrict to one book",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BookmarkList,
			},
			{
				Name:   "sync",
				Usage:  "Push pending bookmarks to the server",
				Flags:  []cli.Flag{configFlag()},
				Action: r.BookmarkSync,
			},
			{
				Name:   "pull",
				Usage:  "Pull the server's bookmark list into the local table",
				Flags:  []cli.Flag{configFlag()},
				Action: r.BookmarkPull,
			},
			{
				Name:   "status",
				Usage:  "Browse bookmarks and their sync status interactively",
				Flags:  []cli.Flag{configFlag()},
				Action: r.TUI,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive bookmark management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive bookmark browser",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
