// ABOUTME: Root command wiring config, logging, storage, and the notes service.
// ABOUTME: Every subcommand shares the connections opened here.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/marknote/internal/cache"
	"github.com/harper/marknote/internal/config"
	"github.com/harper/marknote/internal/db"
	"github.com/harper/marknote/internal/logging"
	"github.com/harper/marknote/internal/metadata"
	"github.com/harper/marknote/internal/notes"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath      string
	dbPathFlag   string
	userFlag     string
	logLevelFlag string

	cfg       *config.Config
	logger    *zap.Logger
	dbConn    *sql.DB
	metaCache *cache.Store
	svc       *notes.Service
	userID    string
)

var rootCmd = &cobra.Command{
	Use:   "marknote",
	Short: "Notes and bookmarks with hierarchical tags",
	Long: `marknote stores notes and saved URLs in a local SQLite database.
Tags nest with slashes (work/projects/q3) and are shown as a tree.`,
	SilenceUsage: true,
}

// Execute runs the root command, canceling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer cleanup()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("db") {
		cfg.DBPath = dbPathFlag
	}
	if flags.Changed("user") {
		cfg.UserID = userFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = db.DefaultPath()
	}
	return nil
}

func setup(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	var err error
	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	dbConn, err = db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	opts := metadata.Options{
		Timeout:           cfg.Metadata.Timeout,
		RequestsPerSecond: cfg.Metadata.RequestsPerSecond,
		Logger:            logger,
	}
	if cfg.Metadata.CachePath != "" {
		// badger holds a directory lock, so a second process runs uncached
		metaCache, err = cache.Open(cfg.Metadata.CachePath, cfg.Metadata.CacheTTL)
		if err != nil {
			logger.Warn("metadata cache unavailable", zap.String("path", cfg.Metadata.CachePath), zap.Error(err))
		} else {
			opts.Cache = metaCache
		}
	}

	svc = notes.NewService(dbConn, metadata.NewFetcher(opts), logger)
	userID = cfg.UserID

	logger.Debug("initialized",
		zap.String("db", cfg.DBPath),
		zap.String("user_id", userID),
		zap.String("command", cmd.Name()),
	)
	return nil
}

// cleanup closes whatever setup opened. Safe to call more than once.
func cleanup() {
	if metaCache != nil {
		if err := metaCache.Close(); err != nil {
			logger.Warn("failed to close metadata cache", zap.Error(err))
		}
		metaCache = nil
	}
	if dbConn != nil {
		if err := dbConn.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
		dbConn = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("marknote %s (commit %s, built %s)\n", version, commit, date))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/marknote/config.yaml)")
	flags.StringVar(&dbPathFlag, "db", "", "database path (default $XDG_DATA_HOME/marknote/marknote.db)")
	flags.StringVar(&userFlag, "user", "", "user ID that owns the notes")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level (debug|info|warn|error)")
}
