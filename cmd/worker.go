package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/engine"
	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued answers and keep profiles current",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Queue.URL == "" {
			return fmt.Errorf("queue.url is not set (or EXAMPREP_AMQP_URL)")
		}
		conn, err := queue.NewConnection(a.cfg.Queue.URL, a.cfg.Queue.Name, a.log)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		consumer := queue.NewConsumer(conn, answerHandler(a.svc), queue.ConsumerConfig{
			Workers:     a.cfg.Queue.Workers,
			Prefetch:    a.cfg.Queue.Prefetch,
			IsPermanent: func(err error) bool { return errors.Is(err, engine.ErrInvalidInput) },
		})
		if err := consumer.Start(ctx); err != nil {
			return err
		}

		a.log.Info("worker running", "queue", conn.Queue())
		<-ctx.Done()
		consumer.Stop()
		return nil
	},
}

// answerHandler records the answer and refreshes the user's insights.
func answerHandler(svc *engine.Service) queue.Handler {
	return func(ctx context.Context, ev *model.AnswerEvent) error {
		if _, err := svc.RecordAnswer(ctx, *ev); err != nil {
			return err
		}
		if _, err := svc.GenerateInsights(ctx, ev.UserID); err != nil {
			return fmt.Errorf("generate insights: %w", err)
		}
		return nil
	}
}
