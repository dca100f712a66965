package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "List every tracked origin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientFromFlags()
			if err != nil {
				return err
			}
			report, err := client.Origins(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ORIGIN\tSTATE\tREQUESTS\tSUCCESS\tBLOCKED\tRATE_LIMITED\tDELAY")
			for _, o := range report.Origins {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\t%d\t%d\t%s\n",
					o.Origin,
					o.BreakerState,
					o.TotalRequests,
					o.SuccessRate*100,
					o.TotalBlocked,
					o.TotalRateLimited,
					time.Duration(o.CurrentDelay).Round(time.Millisecond),
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d origins, %d requests, %.1f%% success, %d open\n",
				report.TotalOrigins, report.TotalRequests, report.SuccessRate*100, report.OpenOrigins)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw report as JSON.")
	return cmd
}

func newBlockStatsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "blockstats",
		Short: "Print the blocking report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if top < 0 {
				return fmt.Errorf("--top must not be negative")
			}
			client, err := clientFromFlags()
			if err != nil {
				return err
			}
			text, err := client.BlockStats(cmd.Context(), top)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Number of worst origins to list (server default when 0).")
	return cmd
}

func newAlertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Run the blocking check and list flagged origins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientFromFlags()
			if err != nil {
				return err
			}
			alerts, err := client.Alerts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(alerts) == 0 {
				fmt.Fprintln(out, "no origins flagged")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ORIGIN\tSTATE\tSUCCESS\tREQUESTS\tRETRY_IN")
			for _, a := range alerts {
				fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%d\t%.0fs\n",
					a.Origin, a.State, a.SuccessRate*100, a.TotalRequests, a.RetryAfterSeconds)
			}
			return tw.Flush()
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <origin>",
		Short: "Close an origin's breaker and clear its backoff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromFlags()
			if err != nil {
				return err
			}
			res, err := client.Reset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reset (state: %s)\n", res.Origin, res.State)
			return nil
		},
	}
}
