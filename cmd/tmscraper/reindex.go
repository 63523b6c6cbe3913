package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tmscraper/pkg/logger"
	"tmscraper/pkg/ui"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the dedup index from the image directory",
	Long: `Scan the output directory and add an index entry for every image file
that is not indexed yet. Leftover temporary files and metadata files without
an image are removed. Existing entries are never deleted.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	reindexCmd.Flags().StringVarP(&outputDir, "output", "o", "", "image output directory")
	reindexCmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for state.json and the index")
}

func runReindex(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if stateDir != "" {
		flags["state-dir"] = stateDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	inserted, err := st.reconcile(cmd.Context(), logger.GetLogger())
	if err != nil {
		return err
	}

	total, err := st.index.Count(cmd.Context())
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Index rebuilt: %d added, %d total", inserted, total))
	ui.PrintInfo("Index", st.index.Path())
	return nil
}
