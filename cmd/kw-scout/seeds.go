package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func seedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seeds",
		Short: "Manage stored seed keywords",
		Long: `Seeds are the keywords each automated mining run starts from. Add the
root phrases of your niches once; 'kw-scout automate' re-mines them on
every run.`,
	}

	cmd.AddCommand(
		seedsAddCmd(),
		seedsRemoveCmd(),
		seedsListCmd(),
	)

	return cmd
}

func seedsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyword> [keyword...]",
		Short: "Add seed keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.seeds.Add(cmd.Context(), args, a.department(cmd))
			if err != nil {
				return err
			}
			fmt.Printf("Added %d seeds\n", len(added))
			return nil
		},
	}
}

func seedsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <keyword>",
		Short: "Remove a seed keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seeds.Remove(cmd.Context(), args[0], a.department(cmd)); err != nil {
				return err
			}
			fmt.Printf("Removed seed %q\n", args[0])
			return nil
		},
	}
}

func seedsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List seed keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			dept, _ := cmd.Flags().GetString("department")
			seedList, err := a.seeds.List(cmd.Context(), dept)
			if err != nil {
				return err
			}
			if len(seedList) == 0 {
				fmt.Println("No seeds stored.")
				return nil
			}

			fmt.Printf("%-40s %-9s %s\n", "KEYWORD", "DEPT", "LAST MINED")
			for _, seed := range seedList {
				lastMined := "never"
				if !seed.LastMinedAt.IsZero() {
					lastMined = seed.LastMinedAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("%-40s %-9s %s\n", seed.Keyword, seed.Department, lastMined)
			}
			return nil
		},
	}
}
