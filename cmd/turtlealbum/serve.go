package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/turtlealbum/internal/api"
	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/config"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/importer"
	"github.com/erazemk/turtlealbum/internal/logging"
	"github.com/erazemk/turtlealbum/internal/metrics"
	"github.com/erazemk/turtlealbum/internal/store"
	"github.com/erazemk/turtlealbum/internal/web"
)

const (
	shutdownTimeout    = 5 * time.Second
	tokenPurgeInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serve migrates the database, creates the admin account on first run
(printing its generated password once) and serves the API, the image
store and the frontend until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default from config, :8080)")
	serveCmd.Flags().String("frontend-dir", "", "directory of the built frontend")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	if err := serve(cmd.Context(), cmd, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	return nil
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) error {
	database, err := openDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver))

	users, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if users == 0 {
		password, err := createAdmin(ctx, database, cfg.Admin.Username)
		if err != nil {
			return err
		}
		printInitResult(cmd.OutOrStdout(), cfg.Database.DSN, cfg.Admin.Username, password)
		fmt.Fprintln(cmd.OutOrStdout())
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	blobs, err := blob.Open(ctx, cfg.BlobOptions())
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	logger.Info("blob store ready", zap.String("driver", string(blobs.Driver())))

	frontend, err := web.NewSPA(cfg.Server.FrontendDir)
	if err != nil {
		return err
	}

	handler := api.NewRouter(api.Options{
		DB:         database,
		Blobs:      blobs,
		Logger:     logger,
		Metrics:    metrics.New(),
		JWTSecret:  jwtSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		Thresholds: cfg.Mating,
		ImportLimits: importer.Limits{
			MaxFiles: cfg.Import.MaxZipFiles,
			MaxBytes: cfg.Import.MaxZipBytes,
		},
		Frontend: frontend,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		purgeRevokedTokens(gctx, database, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped, closing database")
	return nil
}

// purgeRevokedTokens drops expired logout entries every tokenPurgeInterval
// until ctx ends.
func purgeRevokedTokens(ctx context.Context, database *db.DB, logger *zap.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, t)
			if err != nil {
				logger.Warn("purging revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
