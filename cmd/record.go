package cmd

import (
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an answered question and update mastery",
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := answerFromFlags(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		profile, err := a.svc.RecordAnswer(cmd.Context(), ev)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), profile)
		}
		domains, err := a.repo.LoadDomains(cmd.Context())
		if err != nil {
			return err
		}
		renderMasteries(cmd.OutOrStdout(), profile.DomainMasteries, domains)
		return nil
	},
}

func init() {
	addAnswerFlags(recordCmd)
}
