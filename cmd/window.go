/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/lyricqueue/internal/window"
)

// Column widths of the window table
const (
	positionWidth = 5
	songIDWidth   = 12
	titleWidth    = 36
	previewWidth  = 48
)

var (
	windowReverse bool
	windowSize    int
)

// windowCmd represents the window command
var windowCmd = &cobra.Command{
	Use:   "window <artist> <cursor>",
	Short: "Show the songs around a cursor, scraping what is missing",
	Long: `Load the window of songs around the cursor song.

The window starts at the cursor and extends forward through the catalog, or
backward with --reverse, for --size songs. Songs in the window that have no
valid lyrics yet are scraped before the window is shown.`,
	Args: cobra.ExactArgs(2),
	RunE: runWindow,
}

func init() {
	rootCmd.AddCommand(windowCmd)

	windowCmd.Flags().BoolVarP(&windowReverse, "reverse", "r", false, "Extend the window backward from the cursor")
	windowCmd.Flags().IntVarP(&windowSize, "size", "s", 0, "Number of songs in the window (default from config)")
}

func runWindow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := window.Forward
	if windowReverse {
		dir = window.Reverse
	}
	size := windowSize
	if !cmd.Flags().Changed("size") {
		size = a.cfg.Window.DefaultSize
	}

	w, err := a.svc.LoadWindow(ctx, args[0], args[1], dir, size)
	if err != nil {
		return fmt.Errorf("failed to load window: %w", err)
	}

	if jsonOutput {
		return printJSON(w)
	}

	songs, err := a.store.GetSongs(ctx, w.SongIDs)
	if err != nil {
		return fmt.Errorf("failed to load song titles: %w", err)
	}
	titles := make(map[string]string, len(songs))
	for id, s := range songs {
		titles[id] = s.Title
	}

	fmt.Print(formatWindow(w, titles))
	return nil
}

// formatWindow renders the window as an aligned table followed by a
// one-line summary.
func formatWindow(w *window.Window, titles map[string]string) string {
	reasons := make(map[string]string, len(w.Failed))
	for _, f := range w.Failed {
		reasons[f.SongID] = f.Reason
	}

	var b strings.Builder
	b.WriteString(row("#", "ID", "TITLE", "LYRICS"))
	for i, id := range w.SongIDs {
		var preview string
		if song, ok := w.Songs[id]; ok {
			preview = firstLine(song.Lyrics)
		} else {
			preview = "(" + reasons[id] + ")"
		}
		b.WriteString(row(fmt.Sprint(w.Start+i+1), id, titles[id], preview))
	}
	fmt.Fprintf(&b, "%s window at %s: %d loaded, %d scraped, %d failed\n",
		w.Direction, w.Cursor, w.Loaded, w.Scraped, len(w.Failed))
	return b.String()
}

func row(position, id, title, preview string) string {
	return strings.Join([]string{
		cell(position, positionWidth),
		cell(id, songIDWidth),
		cell(title, titleWidth),
		strings.TrimRight(cell(preview, previewWidth), " "),
	}, "  ") + "\n"
}

// firstLine returns the first non-blank line of text.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// cell fits text to a column width display cells wide, cutting it with
// "..." when it runs over.
func cell(text string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(text, width, "..."), width)
}
