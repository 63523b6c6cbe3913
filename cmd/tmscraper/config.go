package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tmscraper/pkg/config"
	"tmscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tmscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TMSCRAPER_*) and .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with all defaults",
	Long: `Create a configuration file holding every option at its default value.

The file is written to ./tmscraper.yaml unless a path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

Secrets such as the Tor control password are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration file and environment for syntax errors and
invalid values, and check that the output and state directories are writable.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = config.AppName + ".yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Edit the query axes and the identity provider")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'tmscraper config validate' to check the configuration")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start crawling with 'tmscraper crawl'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(masked(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// masked returns a copy of cfg safe to print
func masked(cfg *config.Config) *config.Config {
	display := *cfg
	if pw := display.Identity.Tor.ControlPassword; pw != "" {
		if len(pw) > 8 {
			display.Identity.Tor.ControlPassword = pw[:2] + "..." + pw[len(pw)-2:]
		} else {
			display.Identity.Tor.ControlPassword = "***"
		}
	}
	return &display
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintWarning("No configuration file found, validating defaults and environment")
	} else {
		ui.PrintInfo("Validating configuration", path)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems []string
	for _, dir := range []string{cfg.Output.BaseDirectory, cfg.StateDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create directory %s: %v", dir, err))
		}
	}
	if len(problems) > 0 {
		for _, p := range problems {
			ui.PrintError("  - " + p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	if cfg.Identity.Provider == "none" && cfg.Crawl.MaxFetchAttempts == 0 {
		ui.PrintWarning("Identity provider is none and fetch attempts are unlimited; a blocked page is retried forever")
	}

	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Queries:              %d\n", len(buildQueries(cfg)))
	fmt.Fprintf(out, "  Output directory:     %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(out, "  State directory:      %s\n", cfg.StateDir())
	fmt.Fprintf(out, "  Concurrent downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Fprintf(out, "  Page ceiling:         %d\n", cfg.Crawl.MaxPages)
	fmt.Fprintf(out, "  Identity provider:    %s\n", cfg.Identity.Provider)
	fmt.Fprintf(out, "  Log level:            %s\n", cfg.Logging.Level)
	return nil
}
