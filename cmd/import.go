package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/questionbank"
)

var importEventsCmd = &cobra.Command{
	Use:   "import-events FILE",
	Short: "Import answered questions from a JSON lines file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := readEvents(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.svc.ImportAnswers(cmd.Context(), events)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d answers for %d users.\n", len(events), users)
		return nil
	},
}

// readEvents parses one AnswerEvent per non-blank line.
func readEvents(path string) ([]model.AnswerEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []model.AnswerEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var ev model.AnswerEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return events, nil
}

var importBankCmd = &cobra.Command{
	Use:   "import-bank FILE",
	Short: "Validate and load a JSON question bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		bank, err := questionbank.Load(f)
		if err != nil {
			return err
		}
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			if err := bank.CheckDomains(nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Valid bank: %d domains, %d questions.\n", len(bank.Domains), len(bank.Questions))
			return nil
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := questionbank.Import(cmd.Context(), a.store, bank); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d domains and %d questions.\n", len(bank.Domains), len(bank.Questions))
		return nil
	},
}

func init() {
	importBankCmd.Flags().Bool("dry-run", false, "Validate only")
}
