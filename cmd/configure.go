package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/lyricqueue/internal/config"
	"github.com/jfmyers9/lyricqueue/pkg/genius"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set up Genius access and storage",
	Long: `Interactively write ~/.config/lyricqueue/config.yaml.

This command will:
1. Prompt for a Genius API client access token and check that it works
2. Ask which store to use (sqlite or mongo) and where it lives

You can create a Genius API client at: https://genius.com/api-clients`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("lyricqueue configuration")
	fmt.Println("========================")
	fmt.Println()
	fmt.Println("You can create a Genius API client at: https://genius.com/api-clients")
	fmt.Println()

	// Step 1: Genius access token
	if cfg.Genius.AccessToken != "" {
		fmt.Printf("Found existing access token: %s\n", maskToken(cfg.Genius.AccessToken))
		if !confirm(reader, "Keep it? [Y/n]: ", true) {
			cfg.Genius.AccessToken = ""
		}
	}
	if cfg.Genius.AccessToken == "" {
		token, err := prompt(reader, "Enter your Genius client access token: ")
		if err != nil {
			return fmt.Errorf("failed to read access token: %w", err)
		}
		if token == "" {
			return fmt.Errorf("an access token is required")
		}
		cfg.Genius.AccessToken = token
	}

	fmt.Println("\nChecking access token...")
	if err := checkToken(cmd.Context(), cfg.Genius); err != nil {
		return fmt.Errorf("access token check failed: %w", err)
	}

	// Step 2: store
	driver, err := prompt(reader, fmt.Sprintf("Store driver (sqlite/mongo) [%s]: ", cfg.Store.Driver))
	if err != nil {
		return fmt.Errorf("failed to read store driver: %w", err)
	}
	if driver != "" {
		cfg.Store.Driver = strings.ToLower(driver)
	}

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		path, err := prompt(reader, fmt.Sprintf("SQLite database path [%s]: ", cfg.Store.SQLitePath))
		if err != nil {
			return fmt.Errorf("failed to read database path: %w", err)
		}
		if path != "" {
			cfg.Store.SQLitePath = path
		}
	case config.DriverMongo:
		uri, err := prompt(reader, fmt.Sprintf("MongoDB URI [%s]: ", cfg.Store.MongoURI))
		if err != nil {
			return fmt.Errorf("failed to read mongo uri: %w", err)
		}
		if uri != "" {
			cfg.Store.MongoURI = uri
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 3: save
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\n✓ Configuration saved to %s/config.yaml\n", config.GetConfigDir())
	fmt.Println("\nYou can now add an artist with 'lyricqueue add <name>'.")
	return nil
}

func checkToken(ctx context.Context, cfg config.GeniusConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := genius.NewClient(genius.Config{AccessToken: cfg.AccessToken, BaseURL: cfg.BaseURL})
	if err != nil {
		return err
	}
	_, err = client.Search().Songs(ctx, "hello")
	return err
}

func prompt(reader *bufio.Reader, question string) (string, error) {
	fmt.Print(question)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func confirm(reader *bufio.Reader, question string, def bool) bool {
	answer, err := prompt(reader, question)
	if err != nil || answer == "" {
		return def
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// maskToken shows only the last four characters of token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
