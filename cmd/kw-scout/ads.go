package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kwscout/kw-scout/internal/adsimport"
)

func adsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ads",
		Short: "Import advertising search-term reports",
	}

	cmd.AddCommand(adsImportCmd())

	return cmd
}

func adsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <report.csv>",
		Short: "Import a search-term report CSV",
		Long: `Import parses an advertising console search-term export. Column names
are matched against known aliases and the header row may be preceded by
metadata rows. Values like "$12.34" and "1,234" parse as-is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := adsimport.Options{}
			opts.Campaign, _ = cmd.Flags().GetString("campaign")

			if value, _ := cmd.Flags().GetString("start"); value != "" {
				opts.StartDate, err = time.Parse("2006-01-02", value)
				if err != nil {
					return fmt.Errorf("invalid --start date: %w", err)
				}
			}
			if value, _ := cmd.Flags().GetString("end"); value != "" {
				opts.EndDate, err = time.Parse("2006-01-02", value)
				if err != nil {
					return fmt.Errorf("invalid --end date: %w", err)
				}
			}

			report, err := a.importer.ImportFile(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d of %d rows", report.Imported, report.Rows)
			if report.Filtered > 0 {
				fmt.Printf(" (%d filtered by campaign)", report.Filtered)
			}
			if report.Skipped > 0 {
				fmt.Printf(" (%d skipped)", report.Skipped)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("campaign", "", "only import rows whose campaign contains this text")
	cmd.Flags().String("start", "", "report period start (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "report period end (YYYY-MM-DD)")

	return cmd
}
