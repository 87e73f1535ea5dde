package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/lyricqueue/internal/service"
)

var addExternalID string

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add an artist",
	Long: `Resolve an artist on Genius and add it to the library.

The artist is looked up by name, or by Genius artist id with --id. Adding an
artist that already exists is a no-op. Run 'lyricqueue populate' afterwards
to fetch its catalog.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if addExternalID == "" && len(args) == 0 {
			return fmt.Errorf("an artist name or --id is required")
		}
		return nil
	},
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addExternalID, "id", "", "Genius artist id")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		sum     *service.Summary
		created bool
	)
	if addExternalID != "" {
		sum, created, err = a.svc.AddArtistByExternalID(ctx, addExternalID)
	} else {
		sum, created, err = a.svc.AddArtist(ctx, strings.Join(args, " "))
	}
	if err != nil {
		return fmt.Errorf("failed to add artist: %w", err)
	}

	if jsonOutput {
		return printJSON(sum)
	}
	if created {
		fmt.Printf("Added %s (%s)\n", sum.Name, sum.ID)
	} else {
		fmt.Printf("%s (%s) already exists\n", sum.Name, sum.ID)
	}
	return nil
}
