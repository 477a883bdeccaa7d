package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/engine"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps USER",
	Short: "List knowledge gaps in priority order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.svc.GetKnowledgeGaps(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), list)
		}
		renderGaps(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	gapsCmd.Flags().Int("limit", engine.DefaultGapLimit, "Maximum gaps to show (1-20)")
}
