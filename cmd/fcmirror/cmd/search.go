package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/fcmirror/internal/config"
	"github.com/Aman-CERP/fcmirror/internal/docsearch"
	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
	"github.com/Aman-CERP/fcmirror/internal/output"
	"github.com/Aman-CERP/fcmirror/internal/remote"
)

type searchOptions struct {
	document int
	pagesURL string
	format   string
	limit    int
}

// termResult is the outcome of one search term.
type termResult struct {
	Term    string       `json:"term"`
	Matches int          `json:"matches"`
	Pages   int          `json:"pages"`
	Hits    []output.Hit `json:"hits"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Search the page text of a document",
		Long: `Load the page texts of one document and search them for each term.

Matching is case sensitive. Every occurrence is reported with its page
number and character offset.

Examples:
  fcmirror search --document 42 "annual report"
  fcmirror search --pages-url /api/page/?document=42 budget revenue --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.document > 0) == (opts.pagesURL != "") {
				return mirrorerrors.ValidationError("exactly one of --document or --pages-url is required", nil)
			}
			if opts.format != "text" && opts.format != "json" {
				return mirrorerrors.ValidationError(
					fmt.Sprintf("invalid format %q: must be text or json", opts.format), nil)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSearch(ctx, cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.document, "document", 0, "ID of the document to search")
	cmd.Flags().StringVar(&opts.pagesURL, "pages-url", "", "Page listing URL of the document to search")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 50, "Hits shown per term (0 for all)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, terms []string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newRemoteClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	pagesURL := opts.pagesURL
	if pagesURL == "" {
		if pagesURL, err = client.PagesURL(opts.document); err != nil {
			return err
		}
	}

	results, err := searchDocument(ctx, cmd, client, cfg, pagesURL, terms, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := output.New(cmd.OutOrStdout())
	for _, r := range results {
		w.SearchSummary(r.Term, r.Matches, r.Pages)
		w.Hits(r.Hits)
		if opts.limit > 0 {
			w.Truncated(opts.limit, r.Matches)
		}
	}
	return nil
}

// searchDocument streams the pages at pagesURL into a search worker and
// runs one session per term. The worker and the dispatcher run on their
// own goroutines until every session is done.
func searchDocument(ctx context.Context, cmd *cobra.Command, client *remote.Client, cfg *config.Config,
	pagesURL string, terms []string, limit int) ([]termResult, error) {
	logger := slog.Default()

	worker, err := docsearch.NewWorker(docsearch.WorkerOptions{
		BatchSize: cfg.Search.BatchSize,
		CacheSize: cfg.Search.CacheSize,
		InboxSize: cfg.Search.InboxSize,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	dispatcher := docsearch.NewDispatcher(worker, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })

	var results []termResult
	g.Go(func() error {
		defer dispatcher.Close()

		content, err := loadPages(gctx, cmd, client, dispatcher, pagesURL)
		if err != nil {
			return err
		}

		sessions := make([]*docsearch.Session, 0, len(terms))
		for _, term := range terms {
			s, err := dispatcher.Search(gctx, term)
			if err != nil {
				return err
			}
			sessions = append(sessions, s)
		}

		for _, s := range sessions {
			if err := s.Wait(gctx); err != nil {
				return err
			}
			results = append(results, collectHits(s, content, limit, cfg.Search.ContextChars))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// loadPages adds every page to the worker as it arrives and returns the
// page texts by number, for snippets.
func loadPages(ctx context.Context, cmd *cobra.Command, client *remote.Client,
	dispatcher *docsearch.Dispatcher, pagesURL string) (map[int]string, error) {
	progress := output.New(cmd.ErrOrStderr())
	content := make(map[int]string)
	loaded := 0

	for batch, err := range client.Pages(ctx, pagesURL) {
		if err != nil {
			return nil, err
		}
		docs := make([]docsearch.Document, len(batch))
		for i, p := range batch {
			docs[i] = docsearch.Document{Number: p.Number, Content: p.Content}
			content[p.Number] = p.Content
		}
		if err := dispatcher.AddDocuments(ctx, docs); err != nil {
			return nil, err
		}
		loaded += len(batch)
		progress.Counter("Pages loaded", loaded)
	}
	if loaded > 0 {
		progress.CounterDone()
	}

	slog.Debug("pages loaded", slog.String("url", pagesURL), slog.Int("pages", loaded))
	return content, nil
}

func collectHits(s *docsearch.Session, content map[int]string, limit, radius int) termResult {
	matches := s.Results()
	r := termResult{
		Term:    s.Term(),
		Matches: len(matches),
		Pages:   s.PageCount(),
		Hits:    []output.Hit{},
	}

	termLen := utf8.RuneCountInString(s.Term())
	for i, m := range matches {
		if limit > 0 && i >= limit {
			break
		}
		hit := output.Hit{Term: m.Query, Page: m.Number, Position: m.Position}
		if radius > 0 {
			hit.Snippet = output.Snippet(content[m.Number], m.Position, termLen, radius)
		}
		r.Hits = append(r.Hits, hit)
	}
	return r
}
