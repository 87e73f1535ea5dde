package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair <artist>",
	Short: "Re-validate an artist's cached songs",
	Long: `Check every cached song of the artist.

Songs whose lyrics are missing or invalid are evicted from the cache, and
songs with valid lyrics that are missing from it are added back.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.RepairCache(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to repair cache: %w", err)
	}

	if jsonOutput {
		return printJSON(report)
	}
	fmt.Printf("%s: checked %d songs\n", report.ArtistID, report.Checked)
	if len(report.Evicted) > 0 {
		fmt.Printf("evicted: %s\n", strings.Join(report.Evicted, ", "))
	}
	if len(report.Added) > 0 {
		fmt.Printf("added:   %s\n", strings.Join(report.Added, ", "))
	}
	return nil
}
