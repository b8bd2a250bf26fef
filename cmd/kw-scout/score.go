package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kwscout/kw-scout/internal/store"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [keyword]",
		Short: "Compute opportunity scores",
		Long: `Score combines mining, competition, advertising, and search-volume
signals into one 0-100 opportunity score. With a keyword argument it
scores that keyword; with --all it rescores the whole corpus.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if !all && len(args) == 0 {
				return fmt.Errorf("provide a keyword or pass --all")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			department := a.department(cmd)
			now := time.Now()

			if all {
				scored, skipped, err := a.engine.ScoreAll(cmd.Context(), department, now)
				if err != nil {
					return err
				}
				fmt.Printf("Scored %d keywords (%d skipped for missing signals)\n", scored, skipped)
				return nil
			}

			score, err := a.engine.Score(cmd.Context(), args[0], department, now)
			if err != nil {
				return err
			}
			printScore(score)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "rescore every known keyword")

	return cmd
}

func topCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the highest-scoring keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			scores, err := a.store.TopScores(cmd.Context(), a.department(cmd), limit)
			if err != nil {
				return err
			}
			if len(scores) == 0 {
				fmt.Println("No scores yet. Run 'kw-scout score --all' first.")
				return nil
			}

			fmt.Printf("%-5s %-40s %-9s %s\n", "SCORE", "KEYWORD", "DEPT", "SIGNALS")
			for _, score := range scores {
				fmt.Printf("%-5d %-40s %-9s %s\n",
					score.Score, score.Keyword, score.Department, signalFlags(score))
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "number of keywords to show")

	return cmd
}

func printScore(score *store.KeywordScore) {
	fmt.Printf("%q (%s): %d/100\n", score.Keyword, score.Department, score.Score)
	if score.UsedMining {
		fmt.Printf("  mining:      %5.1f\n", score.Mining)
	}
	if score.UsedCompetition {
		fmt.Printf("  competition: %5.1f\n", score.Competition)
	}
	if score.UsedAds {
		fmt.Printf("  ads:         %5.1f\n", score.Ads)
	}
	if score.UsedVolume {
		fmt.Printf("  volume:      %5.1f\n", score.Volume)
	}
	fmt.Printf("  computed at: %s\n", score.ComputedAt.Format(time.RFC3339))
}

// signalFlags renders which signals fed a score, e.g. "MC-V".
func signalFlags(score store.KeywordScore) string {
	var b strings.Builder
	for _, flag := range []struct {
		used  bool
		label byte
	}{
		{score.UsedMining, 'M'},
		{score.UsedCompetition, 'C'},
		{score.UsedAds, 'A'},
		{score.UsedVolume, 'V'},
	} {
		if flag.used {
			b.WriteByte(flag.label)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
