package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Autopost/internal/timezone"
)

type timeView struct {
	Input     string `json:"input,omitempty"`
	FromZone  string `json:"from_zone,omitempty"`
	Canonical string `json:"canonical"`
	Zone      string `json:"zone"`
}

// NewTimeCmds создаёт команды now и convert.
func NewTimeCmds(svcFn ServiceFunc, outputFn OutputFunc) []*cobra.Command {
	return []*cobra.Command{
		newNowCmd(svcFn, outputFn),
		newConvertCmd(svcFn, outputFn),
	}
}

func newNowCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Show current time in the canonical zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			now := svc.CurrentTime()
			view := timeView{Canonical: now.Format(timeFormatRFC), Zone: svc.Location().String()}
			out.Print(
				[]string{"CANONICAL", "ZONE"},
				[][]string{{formatTime(now), view.Zone}},
				view,
			)
			return nil
		},
	}
}

func newConvertCmd(svcFn ServiceFunc, outputFn OutputFunc) *cobra.Command {
	var zone string

	cmd := &cobra.Command{
		Use:   "convert TIME",
		Short: "Convert a timestamp to the canonical zone",
		Long: `Convert a timestamp to the canonical zone.

TIME is RFC 3339 (offset wins, --zone ignored) or a naive
"2026-02-23 15:30" read as wall clock in --zone (default UTC).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := timezone.ParseTimestamp(args[0])
			if err != nil {
				return err
			}

			svc, err := svcFn()
			if err != nil {
				return err
			}
			out := outputFn(cmd)

			t, err := svc.ConvertTime(ts, zone)
			if err != nil {
				return err
			}

			view := timeView{
				Input:     args[0],
				FromZone:  zone,
				Canonical: t.Format(timeFormatRFC),
				Zone:      svc.Location().String(),
			}
			out.Print(
				[]string{"INPUT", "FROM_ZONE", "CANONICAL"},
				[][]string{{args[0], zone, formatTime(t)}},
				view,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&zone, "zone", "", "Zone of a naive TIME (default UTC)")

	return cmd
}
