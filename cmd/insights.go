package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/engine"
	"github.com/abhisek/examprep/internal/model"
)

var insightsCmd = &cobra.Command{
	Use:   "insights USER",
	Short: "Show recent insights, optionally generating new ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		limit, _ := f.GetInt("limit")
		generate, _ := f.GetBool("generate")
		markRead, _ := f.GetString("read")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		userID := args[0]

		if markRead != "" {
			if err := a.svc.MarkInsightRead(ctx, userID, markRead); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read.\n", markRead)
			return nil
		}

		var fresh []model.Insight
		if generate {
			fresh, err = a.svc.GenerateInsights(ctx, userID)
			if err != nil {
				return err
			}
		}
		list, err := a.svc.GetRecentInsights(ctx, userID, limit)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), list)
		}
		if generate {
			fmt.Fprintln(cmd.OutOrStdout(), subtitle(fmt.Sprintf("%d new insights", len(fresh))))
		}
		renderInsights(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	f := insightsCmd.Flags()
	f.Int("limit", engine.DefaultInsightLimit, "Maximum insights to show (1-50)")
	f.Bool("generate", false, "Generate insights from current performance first")
	f.String("read", "", "Mark the insight with this ID as read")
}
