package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/queue"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Queue an answered question for a worker to record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := answerFromFlags(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Queue.URL == "" {
			return fmt.Errorf("queue.url is not set (or EXAMPREP_AMQP_URL)")
		}
		log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			return err
		}
		defer log.Sync()

		conn, err := queue.NewConnection(cfg.Queue.URL, cfg.Queue.Name, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := queue.NewProducer(conn).PublishAnswer(cmd.Context(), &ev); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued answer %s.\n", ev.ID)
		return nil
	},
}

func init() {
	addAnswerFlags(publishCmd)
}
