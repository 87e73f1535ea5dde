package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <artist> <song>...",
	Short: "Scrape lyrics for songs",
	Long: `Scrape lyrics for the given song ids of an artist.

Songs that already have lyrics, have exhausted their attempts or are being
scraped elsewhere are skipped. A failure for one song does not stop the rest.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.ScrapeLyrics(ctx, args[0], args[1:])
	if err != nil {
		return fmt.Errorf("failed to scrape lyrics: %w", err)
	}

	if jsonOutput {
		return printJSON(res)
	}
	for _, id := range res.Successful {
		fmt.Printf("ok       %s\n", id)
	}
	for _, id := range res.Skipped {
		fmt.Printf("skipped  %s\n", id)
	}
	for _, f := range res.Failed {
		fmt.Printf("failed   %s: %s\n", f.SongID, f.Reason)
	}
	return nil
}
