package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func gapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gaps",
		Short: "Show advertising keywords with spend but no orders",
		Long: `Gaps lists keywords that earned impressions in advertising but never
converted, ranked by wasted spend. These are negative-targeting and
listing-copy candidates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			gaps, err := a.analyzer.Gaps(cmd.Context())
			if err != nil {
				return err
			}
			if len(gaps) == 0 {
				fmt.Println("No gap keywords. Every advertised keyword has converted.")
				return nil
			}

			fmt.Printf("%-40s %12s %8s %10s\n", "KEYWORD", "IMPRESSIONS", "CLICKS", "SPEND")
			for _, gap := range gaps {
				fmt.Printf("%-40s %12d %8d %9.2f\n", gap.Keyword, gap.Impressions, gap.Clicks, gap.Spend)
			}
			return nil
		},
	}
}

func trendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show keyword score movement over a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			window, _ := cmd.Flags().GetInt("window")
			trends, err := a.analyzer.Trends(cmd.Context(), a.department(cmd), window)
			if err != nil {
				return err
			}
			if len(trends) == 0 {
				fmt.Printf("No keywords with two or more scores in the last %d days.\n", window)
				return nil
			}

			fmt.Printf("%-40s %6s %6s %6s %s\n", "KEYWORD", "OLD", "NEW", "DELTA", "TREND")
			for _, trend := range trends {
				fmt.Printf("%-40s %6d %6d %+6d %s\n",
					trend.Keyword, trend.Oldest, trend.Newest, trend.Delta, trend.Direction)
			}
			return nil
		},
	}

	cmd.Flags().IntP("window", "w", 30, "window in days")

	return cmd
}
