package cmd

import (
	"github.com/spf13/cobra"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
	"github.com/Aman-CERP/fcmirror/internal/history"
	"github.com/Aman-CERP/fcmirror/internal/output"
	"github.com/Aman-CERP/fcmirror/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent downloads",
		Long: `List recorded download runs, newest first, with their outcome and
counts. A failed or interrupted run can be resumed by running the same
download again into the same destination.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.History.Disabled {
				output.New(cmd.OutOrStdout()).Warning("Download history is disabled (history.disabled)")
				return nil
			}

			runs, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = runs.Close() }()

			list, err := runs.List(cmd.Context(), limit)
			if err != nil {
				return mirrorerrors.IOError("failed to read download history", err)
			}

			r := ui.NewHistoryRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(list)
			}
			return r.Render(list)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
