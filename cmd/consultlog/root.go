package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/akave-ai/consultlog/internal/config"
	"github.com/akave-ai/consultlog/internal/logger"
	"github.com/akave-ai/consultlog/internal/server"
	"github.com/akave-ai/consultlog/internal/storage"
	"github.com/akave-ai/consultlog/internal/store"
)

const shutdownFlush = 5 * time.Second

// app is what every subcommand needs after config is loaded.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *store.Store
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Observability)
	return &app{cfg: cfg, logger: log, store: store.New(cfg.Store, log)}, nil
}

// archiver returns nil when no O3 bucket is configured.
func (a *app) archiver(ctx context.Context) (*storage.Archiver, error) {
	client, err := storage.NewO3Client(a.cfg.O3())
	if err != nil || client == nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("o3 ensure bucket failed, uploads may fail")
	}
	return storage.NewArchiver(client, a.store, client.Prefix()), nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "consultlog",
		Short:         "Contact form intake with a password-protected submissions viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the intake and admin HTTP server",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "records",
			Short: "Print stored submissions as JSON",
			RunE:  runRecords,
		},
		&cobra.Command{
			Use:   "archive",
			Short: "Upload a snapshot of the submissions file to O3",
			RunE:  runArchive,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.store.EnsureInitialized(); err != nil {
		a.logger.Error().Err(err).Msg("initialize submissions file")
		return err
	}

	nr, err := logger.NewRelic(a.cfg.Observability)
	if err != nil {
		a.logger.Warn().Err(err).Msg("new relic disabled")
	}
	arch, err := a.archiver(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("o3 client, archiving disabled")
	}

	srv := server.New(a.cfg, server.Deps{
		Store:    a.store,
		Archiver: arch,
		NewRelic: nr,
		Logger:   a.logger,
	})
	if err := srv.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("server exited")
		return err
	}
	if nr != nil {
		nr.Shutdown(shutdownFlush)
	}
	a.logger.Info().Msg("server stopped")
	return nil
}

func runRecords(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	doc, err := a.store.ReadAll(cmd.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("read submissions")
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc.Records)
}

func runArchive(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	arch, err := a.archiver(cmd.Context())
	if err != nil {
		return err
	}
	info, err := arch.Snapshot(cmd.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("archive snapshot")
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), info.Key)
	return nil
}
