package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/mq"
)

// ConnFunc открывает соединение с RabbitMQ.
type ConnFunc func() (*mq.Connection, error)

// NewEventsCmd создаёт команду чтения событий постов из RabbitMQ.
func NewEventsCmd(connFn ConnFunc, outputFn OutputFunc) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail post events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connFn()
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(conn); err != nil {
				return fmt.Errorf("setup topology: %w", err)
			}

			out := outputFn(cmd)
			out.Success(fmt.Sprintf("Reading %s (Ctrl+C to stop)...", queue))

			consumer := mq.NewConsumer(conn, mq.ConsumerConfig{
				Queue:   mq.Queue(queue),
				Handler: printEventHandler(out),
				Logger:  slog.Default(),
			})

			err = consumer.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&queue, "queue", string(mq.QueueEvents), "Queue to read")

	return cmd
}

// printEventHandler печатает событие одной строкой или JSON-объектом.
func printEventHandler(out *Output) mq.Handler {
	return func(_ context.Context, ev domain.Event, msg *mq.Message) error {
		if out.IsJSON() {
			out.JSON(ev)
			return nil
		}

		line := fmt.Sprintf("%s  %-15s  %s", formatTime(ev.At), ev.Type, ev.PostID)
		if ev.Reason != "" {
			line += "  reason=" + string(ev.Reason)
		}
		if ev.Content != "" {
			line += "  " + truncate(ev.Content, maxContentCell)
		}
		out.Line(line)
		return nil
	}
}
