package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/model"
)

func addAnswerFlags(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "User ID (required)")
	cmd.Flags().String("question", "", "Question ID (required)")
	cmd.Flags().String("domain", "", "Domain ID (required)")
	cmd.Flags().String("difficulty", string(model.DifficultyMedium), "Question difficulty: EASY, MEDIUM or HARD")
	cmd.Flags().String("methodology", "", "Methodology tag, e.g. agile or predictive")
	cmd.Flags().Bool("correct", false, "Whether the answer was correct")
	cmd.Flags().Int64("time-ms", 0, "Time spent answering in milliseconds")
}

func answerFromFlags(cmd *cobra.Command) (model.AnswerEvent, error) {
	f := cmd.Flags()
	user, _ := f.GetString("user")
	question, _ := f.GetString("question")
	domain, _ := f.GetString("domain")
	diff, _ := f.GetString("difficulty")
	methodology, _ := f.GetString("methodology")
	correct, _ := f.GetBool("correct")
	timeMs, _ := f.GetInt64("time-ms")

	d, err := model.ParseDifficulty(diff)
	if err != nil {
		return model.AnswerEvent{}, fmt.Errorf("--difficulty: %w", err)
	}
	return model.AnswerEvent{
		UserID:      user,
		QuestionID:  question,
		DomainID:    domain,
		Difficulty:  d,
		Methodology: methodology,
		IsCorrect:   correct,
		TimeSpentMs: timeMs,
	}, nil
}
