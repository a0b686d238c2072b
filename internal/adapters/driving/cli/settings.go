package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in the config file.

Keys use dot notation, e.g. elasticsearch.host or index.strategy.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a setting",
	Long: `Stores a value in the config file. When the value is omitted it is
read from standard input; secrets such as elasticsearch.password are read
without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Search Engine]")
	cmd.Printf("  Backend: %s\n", settings.Backend.Description())
	cmd.Printf("  Host: %s\n", settings.Elasticsearch.Host)
	if settings.Elasticsearch.Username != "" {
		cmd.Printf("  Username: %s\n", settings.Elasticsearch.Username)
		cmd.Printf("  Password: %s\n", maskSecret(settings.Elasticsearch.Password))
	}
	cmd.Printf("  Timeout: %s\n", settings.Elasticsearch.Timeout)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Alias: %s\n", settings.Indexing.Alias)
	cmd.Printf("  Prefix: %s\n", settings.Indexing.Prefix)
	cmd.Printf("  Strategy: %s\n", settings.Indexing.Strategy)
	cmd.Printf("  Workers: %d\n", settings.Indexing.Workers)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	cmd.Println()

	cmd.Println("[Content]")
	cmd.Printf("  Base URL: %s\n", settings.Content.BaseURL)
	if settings.Content.Token != "" {
		cmd.Printf("  Token: %s\n", maskSecret(settings.Content.Token))
	} else {
		cmd.Printf("  Token: (not set)\n")
	}
	cmd.Printf("  Rate limit: %g req/s\n", settings.Content.RateLimit)
	if len(settings.Content.Endpoints) > 0 {
		keys := make([]string, 0, len(settings.Content.Endpoints))
		for k := range settings.Content.Endpoints {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  Endpoint: %s -> /api/%s\n", k, settings.Content.Endpoints[k])
		}
	}
	cmd.Println()

	cmd.Println("[Scheduler]")
	enabled := "no"
	if settings.Scheduler.Enabled {
		enabled = "yes"
	}
	cmd.Printf("  Enabled: %s\n", enabled)
	cmd.Printf("  Collections file: %s\n", settings.CollectionsFile)
	cmd.Printf("  Server address: %s\n", settings.ServerAddr)
	cmd.Println()

	if err := settingsService.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	var raw string
	if len(args) == 2 {
		raw = args[1]
	} else {
		cmd.Printf("Enter value for %s: ", key)
		if isSecretKey(key) {
			raw = readPassword()
			cmd.Println()
		} else {
			raw = readLine(bufio.NewReader(cmd.InOrStdin()))
		}
	}

	if err := configStore.Set(key, parseValue(raw)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if isSecretKey(key) {
		cmd.Printf("Set %s.\n", key)
	} else {
		cmd.Printf("Set %s = %s.\n", key, raw)
	}
	return nil
}

// parseValue stores booleans and numbers with their TOML types.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return raw
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "password") || strings.HasSuffix(key, "token") || strings.HasSuffix(key, "secret")
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
