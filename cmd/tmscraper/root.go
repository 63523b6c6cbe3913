package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"tmscraper/pkg/logger"
	"tmscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tmscraper",
	Short: "Resumable crawler for TMview trademark images",
	Long: `tmscraper walks every combination of trademark status, Nice class and mark
type on the TMview search API and downloads each referenced image exactly once.

Features:
  - Resumes at the exact page after a crash or restart
  - SQLite dedup index rebuilt from the image directory at startup
  - Concurrent downloads with configurable limits
  - Identity rotation through NordVPN or Tor when the API blocks
  - Optional supervisor that restarts the crawl after fatal errors`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version

		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		// Don't show logo for certain commands
		switch cmd.Name() {
		case "version", "help", "show", "status", "get", "list", "tmscraper":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./tmscraper.yaml or $XDG_CONFIG_HOME/tmscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`tmscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
