package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"boardd/internal/config"
	"boardd/internal/kanban"
	"boardd/internal/provider"
	"boardd/internal/provider/github"
	"boardd/internal/server"
	"boardd/internal/store"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "boardd",
	Short: "boardd - kanban issue board server",
	Long: `boardd serves kanban boards whose cards can be imported from and
kept in sync with external issue trackers, over S3-compatible storage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s3Client, err := store.NewS3Client(cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to init S3: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucketExists(ctx, s3Client, cfg.S3.Bucket); err != nil {
		return err
	}

	st := store.NewS3Store(s3Client, cfg.S3.Bucket, logger.Named("store"))

	providers := provider.NewRegistry()
	providers.Register(github.Name, github.New())

	engine := kanban.NewEngine(st, logger.Named("engine"))
	svc := kanban.NewService(st, engine, providers, logger.Named("service"))
	sessions := kanban.NewSessions(st, providers, logger.Named("sessions"))

	if cfg.Seed.Enabled {
		if err := svc.Seed(ctx, cfg.Seed.BoardName); err != nil {
			return fmt.Errorf("failed to seed default board: %w", err)
		}
	}

	srv := server.New(svc, sessions, cfg.HTTP.StaticDir, logger.Named("http"))

	logger.Info("boardd starting",
		zap.String("listen", cfg.HTTP.Listen),
		zap.Strings("providers", providers.Names()))
	return http.ListenAndServe(cfg.HTTP.Listen, srv)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
