package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var populateCmd = &cobra.Command{
	Use:   "populate <artist>",
	Short: "Fetch an artist's song catalog",
	Long: `Fetch the artist's songs from Genius in popularity order.

A catalog that is complete and fresher than catalog.refresh_interval is left
alone. Progress is saved after every page, so an interrupted run resumes where
it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runPopulate,
}

func init() {
	rootCmd.AddCommand(populateCmd)
}

func runPopulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.PopulateCatalog(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to populate catalog: %w", err)
	}

	if jsonOutput {
		return printJSON(res)
	}
	fmt.Printf("%s: %d songs (%d new, %d pages fetched, complete: %t)\n",
		args[0], res.TotalSongs, res.NewSongs, res.PagesFetched, res.IsFullyCached)
	return nil
}
