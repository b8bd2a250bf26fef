// Package main provides the kw-scout binary: keyword mining, scoring, and
// tracking for marketplace book publishers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kw-scout",
		Short: "kw-scout - keyword intelligence for book publishers",
		Long: `kw-scout mines marketplace autocomplete for keyword demand, tracks
competing books, imports advertising search-term reports, and folds
everything into a single 0-100 opportunity score per keyword.

Run 'kw-scout mine "cozy mystery"' to expand a seed keyword.
Run 'kw-scout --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("department", "", "marketplace department (ebook, print, all)")

	rootCmd.AddCommand(
		mineCmd(),
		scoreCmd(),
		topCmd(),
		trackCmd(),
		adsCmd(),
		seedsCmd(),
		gapsCmd(),
		trendsCmd(),
		automateCmd(),
		configCmd(),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kw-scout %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
