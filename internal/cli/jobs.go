package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Autopost/internal/timezone"
)

// NewJobsCmd создаёт команду списка ожидающих job'ов.
func NewJobsCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List pending jobs in firing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			jobs := svc.JobsInfo()
			now := svc.CurrentTime()

			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = []string{
					j.ID.String(),
					j.PostID,
					j.Kind.String(),
					formatTime(j.FireTime),
					timezone.FormatRemaining(j.FireTime, now),
				}
			}

			out.Print([]string{"JOB_ID", "POST_ID", "KIND", "FIRE_TIME", "REMAINING"}, rows, jobs)
			return nil
		},
	}
}
