package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dooilabs/context101/internal/config"
	"github.com/dooilabs/context101/internal/content"
	"github.com/dooilabs/context101/internal/docs"
	"github.com/dooilabs/context101/internal/logging"
	"github.com/dooilabs/context101/internal/progress"
	"github.com/dooilabs/context101/internal/server"
	"github.com/dooilabs/context101/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "context101",
	Short: "MCP server for interactive course walkthroughs",
	Long: "Context101 — an MCP stdio server that walks users through courses step by step,\n" +
		"tracking progress and quiz results locally.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.context101/config.yaml)")
	rootCmd.PersistentFlags().String("course", "", "Lock the server to a single course ID")
	rootCmd.PersistentFlags().String("store", "", "Path to the progress store (overrides CONTEXT101_PROGRESS)")
	rootCmd.PersistentFlags().String("content-dir", "", "Local courses directory")
	rootCmd.PersistentFlags().Bool("local", false, "Serve content from --content-dir only, no remote API")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// loadConfig reads the config file and layers command-line flags on
// top of file and environment values.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("course"); v != "" {
		cfg.Course = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Path = v
	}
	if v, _ := cmd.Flags().GetString("content-dir"); v != "" {
		cfg.Content.Dir = v
	}
	if local, _ := cmd.Flags().GetBool("local"); local {
		cfg.Content.Source = config.SourceLocal
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, cfg.Validate()
}

// buildQuietLogger keeps CLI output clean: warnings and errors only.
func buildQuietLogger() (*zap.Logger, error) {
	return logging.New("warn")
}

// buildProvider assembles the content provider for the configured
// source. "auto" uses the remote API with a local fallback when a
// content dir is configured.
func buildProvider(cfg config.Config, log *zap.Logger) (content.Provider, error) {
	clientCfg := content.DefaultClientConfig()
	if cfg.API.BaseURL != "" {
		clientCfg.BaseURL = cfg.API.BaseURL
	}

	switch cfg.Content.Source {
	case config.SourceLocal:
		return content.NewLocal(cfg.Content.Dir), nil
	case config.SourceRemote:
		return content.NewClient(clientCfg), nil
	default:
		remote := content.NewClient(clientCfg)
		if cfg.Content.Dir == "" {
			return remote, nil
		}
		return content.NewFallback(remote, content.NewLocal(cfg.Content.Dir), log), nil
	}
}

// buildStore opens the configured progress backend.
func buildStore(cfg config.Config) (progress.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		p, err := progress.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if cfg.Store.Backend == config.BackendSQLite {
		return progress.OpenSQLite(path)
	}
	return progress.NewFileStore(path), nil
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	provider, err := buildProvider(cfg, log)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	engine := session.NewEngine(provider, store, log)
	docsClient := docs.NewClient(cfg.Docs.BaseURL, 30*time.Second)

	srv := server.New(server.Options{
		Engine:   engine,
		Provider: provider,
		Docs:     docsClient,
		Log:      log,
		Course:   cfg.Course,
		Version:  version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
