package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/engine"
	"github.com/abhisek/examprep/internal/model"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend USER",
	Short: "Pick the next practice questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := recommendParams(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if random, _ := cmd.Flags().GetBool("random"); random {
			qs, err := a.svc.FallbackQuestions(cmd.Context(), params)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), qs)
			}
			renderQuestions(cmd.OutOrStdout(), qs)
			return nil
		}

		rec, err := a.svc.GetRecommendedQuestions(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		renderRecommendation(cmd.OutOrStdout(), rec)
		return nil
	},
}

func recommendParams(cmd *cobra.Command) (engine.RecommendParams, error) {
	f := cmd.Flags()
	count, _ := f.GetInt("count")
	domain, _ := f.GetString("domain")
	minRaw, _ := f.GetString("min")
	maxRaw, _ := f.GetString("max")

	params := engine.RecommendParams{Count: count, DomainID: domain}
	if minRaw != "" {
		d, err := model.ParseDifficulty(minRaw)
		if err != nil {
			return params, err
		}
		params.DifficultyMin = d
	}
	if maxRaw != "" {
		d, err := model.ParseDifficulty(maxRaw)
		if err != nil {
			return params, err
		}
		params.DifficultyMax = d
	}
	if f.Changed("exclude-days") {
		days, _ := f.GetInt("exclude-days")
		params.ExcludeRecentDays = &days
	}
	return params, nil
}

func init() {
	f := recommendCmd.Flags()
	f.Int("count", engine.DefaultCount, "Number of questions (1-50)")
	f.String("domain", "", "Restrict to one domain")
	f.String("min", "", "Lowest difficulty")
	f.String("max", "", "Highest difficulty")
	f.Int("exclude-days", 0, "Skip questions answered correctly within this many days (0-30)")
	f.Bool("random", false, "Ignore mastery and pick at random")
}
