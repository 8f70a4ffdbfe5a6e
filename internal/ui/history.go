package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Aman-CERP/fcmirror/internal/history"
)

// HistoryRenderer prints recorded runs.
type HistoryRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewHistoryRenderer creates a HistoryRenderer.
func NewHistoryRenderer(out io.Writer, noColor bool) *HistoryRenderer {
	return &HistoryRenderer{out: out, styles: GetStyles(noColor), now: time.Now}
}

// Render prints runs as a table, newest first as given.
func (r *HistoryRenderer) Render(runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(r.out, "No downloads recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDOWNLOADED\tSKIPPED\tSIZE\tDURATION\tCOLLECTION")
	for _, run := range runs {
		dur := "-"
		if d := run.Duration(); d > 0 {
			dur = formatDuration(d)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			run.ID,
			formatAge(run.StartedAt, r.now()),
			r.renderStatus(run.Status),
			run.Downloaded,
			run.Skipped,
			FormatBytes(run.Bytes),
			dur,
			run.CollectionURL,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if last := runs[0]; last.Status == history.StatusFailed && last.Error != "" {
		_, _ = fmt.Fprintf(r.out, "\nLast run failed: %s\n", r.styles.Error.Render(last.Error))
	}
	return nil
}

// RenderJSON prints runs as an indented JSON array.
func (r *HistoryRenderer) RenderJSON(runs []history.Run) error {
	if runs == nil {
		runs = []history.Run{}
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

func (r *HistoryRenderer) renderStatus(s history.Status) string {
	switch s {
	case history.StatusCompleted:
		return r.styles.Success.Render(string(s))
	case history.StatusRunning, history.StatusNotStarted:
		return r.styles.Warning.Render(string(s))
	case history.StatusFailed:
		return r.styles.Error.Render(string(s))
	default:
		return string(s)
	}
}
