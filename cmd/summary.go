package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/lyricqueue/internal/service"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [artist]",
	Short: "Show catalog and cache progress",
	Long: `Show catalog and lyrics cache progress for one artist, or a table of
every artist when none is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		sum, err := a.svc.ArtistSummary(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get summary: %w", err)
		}
		if jsonOutput {
			return printJSON(sum)
		}
		fmt.Print(formatSummary(sum))
		return nil
	}

	sums, err := a.svc.ListSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list artists: %w", err)
	}
	if jsonOutput {
		return printJSON(sums)
	}
	fmt.Print(formatSummaries(sums))
	return nil
}

func formatSummary(s *service.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", s.Name, s.ID)
	fmt.Fprintf(&b, "  genius id:      %s\n", s.ExternalID)
	fmt.Fprintf(&b, "  songs:          %d (complete: %t)\n", s.TotalSongs, s.IsFullyCached)
	fmt.Fprintf(&b, "  lyrics cached:  %d\n", s.CachedSongs)
	if !s.SongsLastUpdated.IsZero() {
		fmt.Fprintf(&b, "  last updated:   %s\n", s.SongsLastUpdated.Format("2006-01-02 15:04"))
	}
	if s.NeedsPopulation {
		b.WriteString("  catalog needs populating\n")
	}
	fmt.Fprintf(&b, "  image:          %s", s.ImageStatus)
	if s.ImageURL != "" {
		fmt.Fprintf(&b, " %s", s.ImageURL)
	}
	b.WriteString("\n")
	return b.String()
}

func formatSummaries(sums []service.Summary) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(cell("ARTIST", 28)+"  "+cell("SONGS", 7)+"  "+cell("LYRICS", 7)+"  STATUS", " ") + "\n")
	for _, s := range sums {
		status := "ok"
		if s.NeedsPopulation {
			status = "needs populating"
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			cell(s.ID, 28),
			cell(fmt.Sprint(s.TotalSongs), 7),
			cell(fmt.Sprint(s.CachedSongs), 7),
			status)
	}
	return b.String()
}
