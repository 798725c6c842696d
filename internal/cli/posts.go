package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Autopost/internal/autopost"
	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/timezone"
)

const waitPollInterval = 200 * time.Millisecond

// NewPostCmds создаёт команды управления постами.
func NewPostCmds(svcFn ServiceFunc, outputFn OutputFunc) []*cobra.Command {
	return []*cobra.Command{
		newPublishCmd(svcFn, outputFn),
		newScheduleCmd(svcFn, outputFn),
		newDeleteCmd(svcFn, outputFn),
		newShowCmd(svcFn, outputFn),
		newListCmd(svcFn, outputFn),
	}
}

func newPublishCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	var deleteAfter float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "publish CONTENT",
		Short: "Publish a post now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			req := autopost.PublishRequest{Content: args[0]}
			if cmd.Flags().Changed("delete-after") {
				req.DeleteAfterHours = &deleteAfter
			}

			id, pubErr := svc.PublishPost(req)
			if id == "" {
				return pubErr
			}

			if err := printPost(svc, out, id, "Post published"); err != nil {
				return err
			}
			if pubErr != nil {
				return fmt.Errorf("post %s kept in memory: %w", id, pubErr)
			}

			if wait {
				return waitForJobs(cmd.Context(), svc, out, id)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&deleteAfter, "delete-after", 0, "Delete the post after N hours (0 disables)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Keep running until the post's jobs have fired")

	return cmd
}

func newScheduleCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	var zone string
	var deleteAfter float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "schedule WHEN CONTENT",
		Short: "Schedule a post for later",
		Long: `Schedule a post for later.

WHEN accepts:
  2026-02-23T15:30:00+03:00   exact instant (--zone ignored)
  2026-02-23 15:30            wall clock in --zone
  30m, 2h, 1d                 relative to now
  14:30, tomorrow 09:00       wall clock in --zone
  cron:0 9 * * 1              next cron occurrence in --zone

--zone defaults to the canonical zone.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			ts, fromZone, err := resolveWhen(svc, args[0], zone)
			if err != nil {
				return err
			}

			req := autopost.ScheduleRequest{
				Content:  args[1],
				At:       ts,
				FromZone: fromZone,
			}
			if cmd.Flags().Changed("delete-after") {
				req.DeleteAfterHours = &deleteAfter
			}

			id, pubErr := svc.PublishPostAt(req)
			if id == "" {
				return pubErr
			}

			if err := printPost(svc, out, id, "Post scheduled"); err != nil {
				return err
			}
			if pubErr != nil {
				return fmt.Errorf("post %s kept in memory: %w", id, pubErr)
			}

			if wait {
				return waitForJobs(cmd.Context(), svc, out, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&zone, "zone", "", "Time zone of WHEN (e.g. 'Europe/Moscow', 'UTC+3')")
	cmd.Flags().Float64Var(&deleteAfter, "delete-after", 0, "Delete the post N hours after publication (0 disables)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Keep running until the post's jobs have fired")

	return cmd
}

func newDeleteCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post and cancel its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			if err := svc.DeletePost(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post deleted: %s", args[0]))
			return nil
		},
	}
}

func newShowCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show post details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			post, err := svc.GetPost(args[0])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(post)
				return nil
			}

			now := svc.CurrentTime()
			row := postRow(post, now)
			out.Table(
				[]string{"FIELD", "VALUE"},
				[][]string{
					{"ID", post.ID},
					{"STATUS", post.Status.String()},
					{"TIME", row[2]},
					{"REMAINING", row[3]},
					{"DELETE_AFTER", row[4]},
					{"CREATED_AT", formatTime(post.CreatedAt)},
				},
			)
			out.Line("")
			out.Line(post.Content)
			return nil
		},
	}
}

func newListCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParsePostStatus(status)
			if err != nil {
				return err
			}

			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			posts := svc.ListPosts(st)
			out.Print(postHeaders, postRows(posts, svc.CurrentTime()), posts)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (scheduled, published)")

	return cmd
}

// resolveWhen разбирает WHEN команды schedule.
// Пустая zone — каноническая зона.
func resolveWhen(svc Service, when, zone string) (timezone.Timestamp, string, error) {
	if zone == "" {
		zone = svc.Location().String()
	}

	if ts, err := timezone.ParseTimestamp(when); err == nil {
		return ts, zone, nil
	}

	loc, err := timezone.ParseZone(zone)
	if err != nil {
		return timezone.Timestamp{}, "", err
	}

	t, err := timezone.ParseWhen(when, svc.CurrentTime(), loc)
	if err != nil {
		return timezone.Timestamp{}, "", err
	}

	return timezone.Aware(t), zone, nil
}

func printPost(svc Service, out *Output, id, msg string) error {
	post, err := svc.GetPost(id)
	if err != nil {
		return err
	}

	out.Success(fmt.Sprintf("%s: %s", msg, id))
	out.Print(postHeaders, [][]string{postRow(post, svc.CurrentTime())}, post)
	return nil
}

// waitForJobs ждёт, пока у поста не останется ожидающих job'ов, или отмены ctx.
func waitForJobs(ctx context.Context, svc Service, out *Output, postID string) error {
	if !hasJobs(svc, postID) {
		return nil
	}

	out.Success("Waiting for scheduled jobs (Ctrl+C to stop)...")

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			out.Success("Interrupted, pending jobs are dropped")
			return nil
		case <-ticker.C:
			if !hasJobs(svc, postID) {
				out.Success(fmt.Sprintf("All jobs of post %s have fired", postID))
				return nil
			}
		}
	}
}

func hasJobs(svc Service, postID string) bool {
	for _, job := range svc.JobsInfo() {
		if job.PostID == postID {
			return true
		}
	}
	return false
}
