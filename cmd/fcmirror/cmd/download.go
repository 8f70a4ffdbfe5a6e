package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fcmirror/internal/config"
	"github.com/Aman-CERP/fcmirror/internal/downloader"
	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
	"github.com/Aman-CERP/fcmirror/internal/history"
	"github.com/Aman-CERP/fcmirror/internal/logging"
	"github.com/Aman-CERP/fcmirror/internal/mirror"
	"github.com/Aman-CERP/fcmirror/internal/output"
	"github.com/Aman-CERP/fcmirror/internal/ui"
)

type downloadOptions struct {
	dest  string
	yes   bool
	noTUI bool
}

func newDownloadCmd() *cobra.Command {
	var opts downloadOptions

	cmd := &cobra.Command{
		Use:   "download <collection-url>",
		Short: "Mirror a document collection into a local directory",
		Long: `Download every document of a collection, recursing into its
sub-collections, into a local directory tree.

Documents whose file already exists are skipped, so running the same
download again resumes where it stopped. Without --dest you are asked
for a directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDownload(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "Destination directory (default: download.destination)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask to confirm the destination")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Print plain progress lines instead of the interactive display")

	return cmd
}

func runDownload(ctx context.Context, cmd *cobra.Command, collectionURL string, opts downloadOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newRemoteClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	out := cmd.OutOrStdout()
	noColor := ui.DetectNoColor()
	renderer := ui.NewRenderer(ui.NewConfig(out,
		ui.WithForcePlain(opts.noTUI || debugMode || cfg.Download.UI == "plain"),
		ui.WithNoColor(noColor),
		ui.WithCollection(collectionURL),
	))

	// The renderer only takes over the terminal once the destination is
	// settled, so it never competes with the prompt.
	started := false
	picker := mirror.PickerFunc(func(ctx context.Context) (mirror.Dir, error) {
		dir, err := destinationPicker(cfg, opts, cmd).Pick(ctx)
		if err != nil {
			return nil, err
		}
		if err := renderer.Start(ctx); err != nil {
			slog.Warn("progress display unavailable", slog.String("error", err.Error()))
		} else {
			started = true
		}
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageResolving,
			Message: "Mirroring into " + dir.Path(),
		})
		return dir, nil
	})

	runs, runID := startHistory(ctx, cfg, collectionURL)
	if runs != nil {
		defer func() { _ = runs.Close() }()
	}

	feed := &progressFeed{renderer: renderer}
	d := downloader.New(client, picker, collectionURL,
		downloader.WithProgress(feed.progress),
		downloader.WithDocumentHook(feed.document),
		downloader.WithLogger(slog.Default()),
		downloader.WithMaxDepth(cfg.Download.MaxDepth),
	)

	result, err := d.Start(ctx)
	feed.flush()

	if runs != nil {
		finishHistory(runs, runID, result, err)
	}

	if result.Outcome == downloader.OutcomeNotStarted {
		w := output.New(out)
		if mirrorerrors.GetCode(result.Reason) == mirrorerrors.ErrCodeGrantCancelled {
			w.Status("⏹️", "Download not started: no destination selected")
			return nil
		}
		// Nothing was written, but the user asked for a download that
		// could not begin.
		return result.Reason
	}

	renderer.Complete(ui.CompletionStats{
		Outcome:     result.Outcome.String(),
		Destination: result.Destination,
		Total:       result.Stats.Total,
		Downloaded:  result.Stats.Downloaded,
		Skipped:     result.Stats.Skipped,
		Empty:       result.Stats.Empty,
		Directories: result.Stats.Directories,
		Bytes:       result.Stats.Bytes,
		Duration:    result.Stats.Duration,
		Err:         err,
	})
	if started {
		if serr := renderer.Stop(); serr != nil {
			slog.Debug("stopping progress display failed", slog.String("error", serr.Error()))
		}
	}
	return err
}

// destinationPicker chooses the destination from --dest, the configuration
// or an interactive prompt, and locks it against concurrent runs.
func destinationPicker(cfg *config.Config, opts downloadOptions, cmd *cobra.Command) mirror.Picker {
	path := opts.dest
	if path == "" {
		path = cfg.Download.Destination
	}

	picker := mirror.PathPicker{Path: path}
	if stdinIsTerminal() {
		prompt := ui.Prompt{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), NoColor: ui.DetectNoColor()}
		picker.Ask = prompt.AskDestination
		picker.AlwaysAsk = cfg.Download.Confirm && !opts.yes
	}

	return mirror.LockedPicker{
		Picker:  picker,
		LockDir: filepath.Join(logging.StateDir(), "locks"),
	}
}

// stdinIsTerminal decides whether the destination can be asked for.
var stdinIsTerminal = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// startHistory records the run's start. History is best effort: a store
// that cannot be opened only costs the record.
func startHistory(ctx context.Context, cfg *config.Config, collectionURL string) (*history.Store, int64) {
	if cfg.History.Disabled {
		return nil, 0
	}
	runs, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Warn("download history unavailable", mirrorerrors.LogAttr(err))
		return nil, 0
	}
	id, err := runs.Start(ctx, collectionURL)
	if err != nil {
		slog.Warn("failed to record download start", mirrorerrors.LogAttr(err))
		_ = runs.Close()
		return nil, 0
	}
	return runs, id
}

func finishHistory(runs *history.Store, id int64, result downloader.Result, runErr error) {
	sum := history.Summary{
		Status:      history.Status(result.Outcome.String()),
		Destination: result.Destination,
		Total:       result.Stats.Total,
		Downloaded:  result.Stats.Downloaded,
		Skipped:     result.Stats.Skipped,
		Bytes:       result.Stats.Bytes,
		Err:         runErr,
	}
	if result.Outcome == downloader.OutcomeNotStarted {
		sum.Err = result.Reason
	}
	// The run context may already be cancelled; the record is still wanted.
	if err := runs.Finish(context.Background(), id, sum); err != nil {
		slog.Warn("failed to record download result", mirrorerrors.LogAttr(err))
	}
}

// progressFeed merges the downloader's per-document hook with the
// percentage that follows it into one renderer event.
type progressFeed struct {
	renderer ui.Renderer
	percent  float64
	pending  *downloader.DocumentEvent
}

func (f *progressFeed) document(ev downloader.DocumentEvent) {
	f.flush()
	f.pending = &ev
}

func (f *progressFeed) progress(percent float64) {
	f.percent = percent
	if f.pending != nil {
		f.flush()
		return
	}
	f.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageDownloading, Percent: percent})
}

// flush sends a document event still waiting for its percentage.
func (f *progressFeed) flush() {
	if f.pending == nil {
		return
	}
	ev := *f.pending
	f.pending = nil
	f.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:       ui.StageDownloading,
		Percent:     f.percent,
		CurrentFile: ev.Path,
		Skipped:     ev.Skipped,
		Bytes:       ev.Bytes,
	})
}
