package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
	"github.com/Aman-CERP/fcmirror/internal/logging"
	"github.com/Aman-CERP/fcmirror/internal/ui"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the fcmirror log",
		Long: `Show the last entries of the fcmirror log file (~/.fcmirror/logs/fcmirror.log).

Examples:
  fcmirror logs                     # Last 50 entries
  fcmirror logs -f                  # Follow new entries
  fcmirror logs --level warn        # Warnings and errors only
  fcmirror logs --filter "a-1.pdf"  # Entries mentioning a file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching this regular expression")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	if opts.level != "" && !logging.ValidLevel(opts.level) {
		return mirrorerrors.ValidationError(fmt.Sprintf("invalid level %q", opts.level), nil)
	}

	cfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
	}
	if opts.filter != "" {
		pattern, err := regexp.Compile(opts.filter)
		if err != nil {
			return mirrorerrors.ValidationError("invalid filter pattern", err)
		}
		cfg.Pattern = pattern
	}

	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return mirrorerrors.New(mirrorerrors.ErrCodeFileNotFound, err.Error(), err).
			WithSuggestion("Logs are written once a command has run")
	}

	viewer := logging.NewViewer(cfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries...)

	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Following %s... (Ctrl+C to stop)\n", path)
	return viewer.Follow(ctx, path, 200*time.Millisecond)
}
