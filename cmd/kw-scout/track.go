package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwscout/kw-scout/internal/estimator"
)

func trackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage tracked books and capture snapshots",
	}

	cmd.AddCommand(
		trackAddCmd(),
		trackRemoveCmd(),
		trackListCmd(),
		trackSnapshotCmd(),
	)

	return cmd
}

func trackAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <book id>",
		Short: "Start tracking a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			title, _ := cmd.Flags().GetString("title")
			own, _ := cmd.Flags().GetBool("own")

			book, err := a.tracker.Add(cmd.Context(), args[0], title, a.department(cmd), own)
			if err != nil {
				return err
			}
			fmt.Printf("Tracking %s (%s)\n", book.BookID, book.Department)
			return nil
		},
	}

	cmd.Flags().String("title", "", "book title")
	cmd.Flags().Bool("own", false, "mark as your own book")

	return cmd
}

func trackRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book id>",
		Short: "Stop tracking a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tracker.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s and its snapshot history\n", args[0])
			return nil
		},
	}
}

func trackListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked books",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			dept, _ := cmd.Flags().GetString("department")
			books, err := a.tracker.List(cmd.Context(), dept)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No tracked books.")
				return nil
			}

			for _, book := range books {
				marker := " "
				if book.IsOwn {
					marker = "*"
				}
				fmt.Printf("%s %-12s %-9s %s\n", marker, book.BookID, book.Department, book.Title)
			}
			fmt.Println("\n* = your own book")
			return nil
		},
	}
}

func trackSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [book id]",
		Short: "Capture rank and price snapshots",
		Long: `Snapshot fetches current rank, price, and reviews for one tracked
book, or for every tracked book when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				result, err := a.tracker.Snapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printSnapshot(result.Book.BookID, result.Snapshot.Rank, result.RankDelta,
					result.Snapshot.Price, result.Snapshot.EstDailySales)
				return nil
			}

			dept, _ := cmd.Flags().GetString("department")
			results, err := a.tracker.SnapshotAll(cmd.Context(), dept)
			if err != nil {
				return err
			}

			var failed int
			for _, result := range results {
				if result.Err != nil {
					failed++
					fmt.Printf("  %-12s FAILED: %v\n", result.Book.BookID, result.Err)
					continue
				}
				printSnapshot(result.Book.BookID, result.Snapshot.Rank, result.RankDelta,
					result.Snapshot.Price, result.Snapshot.EstDailySales)
			}
			fmt.Printf("Captured %d of %d books\n", len(results)-failed, len(results))
			return nil
		},
	}
}

func printSnapshot(bookID string, rank, delta int, price, dailySales float64) {
	trend := ""
	switch {
	case delta > 0:
		trend = fmt.Sprintf(" (up %d)", delta)
	case delta < 0:
		trend = fmt.Sprintf(" (down %d)", -delta)
	}

	fmt.Printf("  %-12s rank %-8d%s $%.2f  ~%.1f sales/day (%s)\n",
		bookID, rank, trend, price, dailySales, estimator.Velocity(dailySales))
}
