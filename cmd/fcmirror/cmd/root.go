// Package cmd provides the CLI commands for fcmirror.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fcmirror/internal/config"
	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
	"github.com/Aman-CERP/fcmirror/internal/logging"
	"github.com/Aman-CERP/fcmirror/internal/profiling"
	"github.com/Aman-CERP/fcmirror/internal/remote"
	"github.com/Aman-CERP/fcmirror/pkg/version"
)

// Persistent flags
var (
	debugMode      bool
	configPath     string
	profileCfg     profiling.Config
	loggingCleanup func()
	profile        *profiling.Session
)

// NewRootCmd creates the root command for the fcmirror CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fcmirror",
		Short: "Mirror and search filingcabinet document collections",
		Long: `fcmirror downloads a filingcabinet document collection, including
all nested sub-collections, into a local directory. Files already present
are skipped, so an interrupted download can simply be run again.

It can also search the page text of a document without downloading it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("fcmirror version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.fcmirror/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Read configuration from this file instead of .fcmirror.yaml")

	cmd.PersistentFlags().StringVar(&profileCfg.CPUPath, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileCfg.HeapPath, "profile-mem", "", "Write memory profile to file")

	cmd.PersistentPreRunE = startRun
	cmd.PersistentPostRunE = stopRun

	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startRun installs the file logger and starts profiling. The log level
// comes from the configuration when it loads; --debug overrides it and
// mirrors to stderr.
func startRun(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	} else if cfg, err := loadConfig(); err == nil {
		logCfg.Level = cfg.Logging.Level
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Debug("logging started",
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))

	if profileCfg.Enabled() {
		if profile, err = profiling.Start(profileCfg); err != nil {
			return err
		}
	}
	return nil
}

func stopRun(_ *cobra.Command, _ []string) error {
	err := profile.Stop()
	profile = nil
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// loadConfig loads and validates configuration for the working directory,
// honouring --config.
func loadConfig() (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	cfg, err := config.LoadFrom(dir, configPath)
	if err != nil {
		return nil, mirrorerrors.ConfigError("failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeConfigInvalid, err.Error(), err).
			WithSuggestion("Check 'fcmirror config show --source'")
	}
	return cfg, nil
}

// newRemoteClient builds the HTTP client described by cfg.
func newRemoteClient(cfg *config.Config) (*remote.Client, error) {
	userAgent := cfg.Remote.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return remote.NewClient(remote.Config{
		BaseURL:   cfg.Remote.BaseURL,
		Timeout:   cfg.RequestTimeout(),
		UserAgent: userAgent,
		Logger:    slog.Default(),
	})
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := NewRootCmd().Execute()
	// PersistentPostRunE is skipped when a command fails.
	_ = stopRun(nil, nil)
	if err != nil {
		if debugMode {
			_, _ = fmt.Fprintln(os.Stderr, mirrorerrors.FormatForUser(err, true))
		} else {
			_, _ = fmt.Fprint(os.Stderr, mirrorerrors.FormatForCLI(err))
		}
	}
	return err
}
