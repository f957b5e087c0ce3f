package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/dataset-relay/internal/api"
	"github.com/andresuchdata/dataset-relay/internal/cache"
	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/andresuchdata/dataset-relay/internal/drive"
	"github.com/andresuchdata/dataset-relay/internal/repository"
	"github.com/andresuchdata/dataset-relay/internal/storage"
	"github.com/andresuchdata/dataset-relay/pkg/logger"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func runTransfer(c *cli.Context) error {
	cfg := loadConfig(c)
	ctx := logger.Log.WithContext(c.Context)

	comp, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comp.Close()

	outcome := comp.driver.Run(ctx, domain.TransferRequest{})
	if !outcome.Succeeded() {
		return cli.Exit(outcome.Err.Error(), 1)
	}

	fmt.Fprintf(c.App.Writer, "Done! %s uploaded, file id: %s\n", outcome.Filename, outcome.FileID)
	return nil
}

func serveAPI(c *cli.Context) error {
	cfg := loadConfig(c)
	ctx := logger.Log.WithContext(c.Context)

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	comp, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comp.Close()

	services := &api.Services{
		Runner:  comp.driver,
		History: comp.history,
		Cache:   comp.cache,
	}
	if comp.drive != nil {
		if srv, err := comp.drive.Connect(ctx); err != nil {
			logger.Log.Warn().Err(err).Msg("drive browse routes disabled")
		} else {
			services.Drive = drive.NewHandler(srv, comp.driver.Defaults().FolderID).Router()
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(services, cfg.Server.AllowedOrigins),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-c.Context.Done():
	}

	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info().Msg("Server exiting")
	return nil
}

func migrateDB(c *cli.Context) error {
	cfg := loadConfig(c)
	dbURL := c.String("db-url")
	if dbURL == "" {
		dbURL = cfg.Database.URL()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := repository.Migrate(c.Context, db); err != nil {
		return err
	}

	logger.Log.Info().Msg("Transfer history schema is up to date")

	if !c.Bool("reset-cache") {
		return nil
	}
	if !cfg.Cache.Enabled {
		logger.Log.Warn().Msg("--reset-cache ignored: CACHE_ENABLED is false")
		return nil
	}

	tc, err := cache.NewTransferCache(c.Context, cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to connect to cache: %w", err)
	}
	defer tc.Close()

	return resetTransferCache(logger.Log.WithContext(c.Context), tc)
}

// resetTransferCache drops cached latest runs so reads fall through to the
// freshly migrated history table.
func resetTransferCache(ctx context.Context, tc cache.TransferCache) error {
	removed, err := tc.InvalidateAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset transfer cache: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int("removed", removed).Msg("Transfer cache cleared")
	return nil
}

func listFiles(c *cli.Context) error {
	cfg := loadConfig(c)
	ctx := logger.Log.WithContext(c.Context)

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if cfg.Upload.Target == config.TargetS3 {
		client, err := storage.NewMinioClient(cfg.S3)
		if err != nil {
			return err
		}
		objects, err := client.ListObjects(ctx, storage.ObjectKey(cfg.S3.Prefix, ""))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "KEY\tSIZE\tETAG")
		for _, o := range objects {
			fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, o.ETag)
		}
		return nil
	}

	srv, err := drive.NewUploader(cfg.Drive).Connect(ctx)
	if err != nil {
		return err
	}
	folderID := cfg.Drive.FolderID
	if folderID == "" && cfg.Drive.FolderPath != "" {
		if folderID, err = srv.FindFolderByPath(ctx, cfg.Drive.FolderPath); err != nil {
			return err
		}
	}
	files, err := srv.ListFiles(ctx, folderID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.ID, f.Name, f.Size, f.ModifiedTime)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no files found")
	}
	return nil
}
