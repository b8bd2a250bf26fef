package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kwscout/kw-scout/internal/automation"
)

func automateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automate",
		Short: "Run the full pipeline: snapshots, mining, scoring",
		Long: `Automate executes one complete pipeline pass: capture snapshots for
every tracked book, re-mine every stored seed, then recompute all
keyword scores. With --every it keeps running at that interval until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			depth, _ := cmd.Flags().GetInt("depth")
			if !cmd.Flags().Changed("depth") {
				depth = a.cfg.Mining.DefaultDepth
			}
			opts := automation.Options{
				Department: a.department(cmd),
				Depth:      depth,
			}

			if every, _ := cmd.Flags().GetDuration("every"); every > 0 {
				fmt.Printf("Running pipeline every %s. Ctrl-C to stop.\n", every)
				return a.runner.Loop(cmd.Context(), every, opts)
			}

			summary, err := a.runner.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().IntP("depth", "d", 1, "mining depth for seed expansion")
	cmd.Flags().Duration("every", 0, "repeat at this interval (e.g. 24h)")

	return cmd
}

func printSummary(summary *automation.Summary) {
	fmt.Printf("Pipeline run finished in %s\n", summary.Duration.Round(time.Second))
	fmt.Printf("  snapshots: %d captured, %d failed\n", summary.SnapshotsCaptured, summary.SnapshotsFailed)
	fmt.Printf("  mining:    %d seeds (%d failed), %d queries, %d observations, %d new keywords\n",
		summary.SeedsMined, summary.SeedsFailed, summary.Queries, summary.Observations, summary.NewKeywords)
	fmt.Printf("  scoring:   %d scored, %d skipped\n", summary.KeywordsScored, summary.KeywordsSkipped)

	if len(summary.Failures) > 0 {
		fmt.Printf("  failures (%d):\n", len(summary.Failures))
		for _, failure := range summary.Failures {
			fmt.Printf("    - %s\n", failure)
		}
	}
}
