package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "relay",
		Usage: "Copy a Kaggle competition archive into Google Drive or an S3 bucket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides LOG_LEVEL)",
			},
		},
		Action: runTransfer,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Download the dataset archive and upload it once",
				Flags:  transferFlags(),
				Action: runTransfer,
			},
			{
				Name:  "serve",
				Usage: "Serve the transfer HTTP API",
				Flags: append(transferFlags(),
					&cli.StringFlag{
						Name:  "port",
						Usage: "HTTP listen port (overrides SERVER_PORT)",
					},
				),
				Action: serveAPI,
			},
			{
				Name:  "migrate",
				Usage: "Create the transfer history table",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db-url",
						Usage:   "Database connection string (defaults to DB_* settings)",
						EnvVars: []string{"DATABASE_URL"},
					},
					&cli.BoolFlag{
						Name:  "reset-cache",
						Usage: "Drop cached latest transfers after migrating",
					},
				},
				Action: migrateDB,
			},
			{
				Name:   "files",
				Usage:  "List files in the configured upload folder",
				Flags:  transferFlags(),
				Action: listFiles,
			},
		},
	}
}

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "competition",
			Usage: "Kaggle competition slug (overrides KAGGLE_COMPETITION)",
		},
		&cli.StringFlag{
			Name:  "folder-id",
			Usage: "Target Drive folder id or bucket prefix (overrides DRIVE_FOLDER_ID)",
		},
		&cli.StringFlag{
			Name:  "folder-path",
			Usage: "Target Drive folder path, resolved to an id (overrides DRIVE_FOLDER_PATH)",
		},
		&cli.StringFlag{
			Name:  "target",
			Usage: "Upload target: drive or s3 (overrides UPLOAD_TARGET)",
		},
	}
}

// loadConfig reads the environment, applies command-line overrides and sets
// the log level.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()

	if c.IsSet("competition") {
		cfg.Kaggle.Competition = c.String("competition")
	}
	if c.IsSet("folder-id") {
		cfg.Drive.FolderID = c.String("folder-id")
	}
	if c.IsSet("folder-path") {
		cfg.Drive.FolderPath = c.String("folder-path")
	}
	if c.IsSet("target") {
		cfg.Upload.Target = c.String("target")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	logger.SetLevel(cfg.Log.Level)

	return cfg
}
