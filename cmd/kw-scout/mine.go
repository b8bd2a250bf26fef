package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func mineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine <seed keyword>",
		Short: "Expand a seed keyword through autocomplete mining",
		Long: `Mine queries marketplace autocomplete for the seed keyword and, at
depth 1 and beyond, for the seed followed by each letter a-z. Every
suggestion is recorded as a keyword observation.

Examples:
  kw-scout mine "cozy mystery"
  kw-scout mine "space opera" --depth 2 --department print`,
		Args: cobra.ExactArgs(1),
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
			department := a.department(cmd)

			report, err := a.miner.Mine(cmd.Context(), args[0], department, depth)
			if err != nil {
				return err
			}

			fmt.Printf("Mined %q (%s, depth %d) in %s\n",
				report.Seed, report.Department, report.Depth, report.Duration.Round(time.Millisecond))
			fmt.Printf("  queries:      %d (%d skipped)\n", report.Queries, report.Skipped)
			fmt.Printf("  observations: %d\n", report.Observations)
			fmt.Printf("  keywords:     %d new, %d known\n", report.NewKeywords, report.KnownKeywords)

			return nil
		},
	}

	cmd.Flags().IntP("depth", "d", 1, "expansion depth (0-2)")

	return cmd
}
