// Package main is the entry point for the Luno account server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (flags, env vars, config.toml)
// 2. Create dependencies (logger, database connection)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
//
// COMMANDS:
//
//	server [serve]                       start the HTTP API (default)
//	server migrate up|down|status        manage the database schema
//	server user activate|deactivate      flip an account's active flag
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/sakif/luno/internal/config"
	"github.com/sakif/luno/internal/server"
	"github.com/sakif/luno/internal/service"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "server",
		Usage:          "Luno account service",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			userCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: config.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.NewFromCLI(cmd)

			logger := server.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
			slog.SetDefault(logger)

			srv, err := server.New(ctx, cfg, logger)
			if err != nil {
				return err
			}

			// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
			return srv.Start(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Flags: config.StorageFlags(),
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: withDatabase(func(ctx context.Context, cmd *cli.Command, db server.Database, logger *slog.Logger) error {
					if err := db.MigrateUp(ctx); err != nil {
						return err
					}
					logger.Info("migrations applied")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Action: withDatabase(func(ctx context.Context, cmd *cli.Command, db server.Database, logger *slog.Logger) error {
					if err := db.MigrateDown(ctx); err != nil {
						return err
					}
					logger.Info("rolled back one migration")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "List migrations and whether they are applied",
				Action: withDatabase(func(ctx context.Context, cmd *cli.Command, db server.Database, _ *slog.Logger) error {
					states, err := db.MigrationStatus(ctx)
					if err != nil {
						return err
					}

					tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
					for _, s := range states {
						state, at := "pending", "-"
						if s.Applied {
							state, at = "applied", s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
						}
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, state, at, s.Source)
					}
					return tw.Flush()
				}),
			},
		},
	}
}

func userCommand() *cli.Command {
	emailFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "email",
			Usage:    "Email address of the account",
			Required: true,
		}
	}

	setActive := func(active bool) cli.ActionFunc {
		return withDatabase(func(ctx context.Context, cmd *cli.Command, db server.Database, logger *slog.Logger) error {
			if err := db.MigrateUp(ctx); err != nil {
				return err
			}
			// SetActive neither hashes passwords nor issues tokens, so the
			// service needs only the repository.
			accounts := service.NewAuthService(db, nil, nil, logger)
			return accounts.SetActive(ctx, cmd.String("email"), active)
		})
	}

	return &cli.Command{
		Name:  "user",
		Usage: "Operator tools for accounts",
		Flags: config.StorageFlags(),
		Commands: []*cli.Command{
			{
				Name:   "activate",
				Usage:  "Allow an account to log in again",
				Flags:  []cli.Flag{emailFlag()},
				Action: setActive(true),
			},
			{
				Name:   "deactivate",
				Usage:  "Block an account from logging in and from every profile operation",
				Flags:  []cli.Flag{emailFlag()},
				Action: setActive(false),
			},
		},
	}
}

type databaseAction func(ctx context.Context, cmd *cli.Command, db server.Database, logger *slog.Logger) error

// withDatabase opens the configured store around fn and closes it afterwards.
func withDatabase(fn databaseAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		logger := server.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

		db, err := server.OpenDatabase(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		return fn(ctx, cmd, db, logger)
	}
}
