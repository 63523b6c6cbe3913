package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tmscraper/pkg/queryspace"
	"tmscraper/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show crawl progress and index size",
	Long: `Show the persisted cursor, the next query to be crawled and how many
images are indexed compared with the files in the output directory.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&outputDir, "output", "o", "", "image output directory")
	statusCmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for state.json and the index")
	statusCmd.Flags().BoolVar(&statusMarkdown, "markdown", false, "print the report as Markdown")
	statusCmd.Flags().StringVar(&statusItem, "item", "", "show whether one item id (ST13) is indexed and on disk")
}

var (
	statusMarkdown bool
	statusItem     string
)

func runStatus(cmd *cobra.Command, args []string) error {
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

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if statusItem != "" {
		item, err := lookupItem(cmd.Context(), st, statusItem)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderItemStatus(item))
		return nil
	}

	report, err := buildStatus(cmd.Context(), cfg.Output.BaseDirectory, st, buildQueries(cfg))
	if err != nil {
		return err
	}

	if statusMarkdown {
		return ui.WriteMarkdownStatus(cmd.OutOrStdout(), report, time.Now())
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus(report))
	return nil
}

func buildStatus(ctx context.Context, outputDir string, st *stores, queries []queryspace.Query) (ui.StatusReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cursor, err := st.cursors.Load()
	if err != nil {
		return ui.StatusReport{}, err
	}

	indexed, err := st.index.Count(ctx)
	if err != nil {
		return ui.StatusReport{}, err
	}

	files, err := st.images.ListImageFilenames()
	if err != nil {
		return ui.StatusReport{}, err
	}

	report := ui.StatusReport{
		QueryIndex:        cursor.QueryIndex,
		LastCompletedPage: cursor.LastCompletedPage,
		Queries:           len(queries),
		Indexed:           indexed,
		Files:             len(files),
		OutputDir:         outputDir,
		StatePath:         st.cursors.Path(),
		CursorSaved:       st.cursors.Exists(),
		IndexPath:         st.index.Path(),
	}
	if cursor.QueryIndex < len(queries) {
		report.NextQuery = queries[cursor.QueryIndex].String()
	}
	return report, nil
}

// lookupItem reports the index entry for id and whether its image is on disk.
func lookupItem(ctx context.Context, st *stores, id string) (ui.ItemStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	item := ui.ItemStatus{ID: id}

	filename, ok, err := st.index.Lookup(ctx, id)
	if err != nil {
		return item, err
	}
	item.Indexed = ok
	item.Filename = filename
	item.OnDisk = st.images.Exists(id)
	return item, nil
}
