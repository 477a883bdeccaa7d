package cmd

import (
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile USER",
	Short: "Show a learner's mastery, gaps and latest insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if recalc, _ := cmd.Flags().GetBool("recalculate"); recalc {
			if _, err := a.svc.Recalculate(cmd.Context(), args[0]); err != nil {
				return err
			}
		}
		p, err := a.svc.GetLearningProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), p)
		}
		domains, err := a.repo.LoadDomains(cmd.Context())
		if err != nil {
			return err
		}
		renderProfile(cmd.OutOrStdout(), p, domains)
		return nil
	},
}

func init() {
	profileCmd.Flags().Bool("recalculate", false, "Recalculate mastery before showing the profile")
}
