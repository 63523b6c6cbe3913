package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/config"
	"tmscraper/pkg/crawler"
	"tmscraper/pkg/identity"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/ratelimit"
	"tmscraper/pkg/retry"
	"tmscraper/pkg/tmview"
	"tmscraper/pkg/ui"
	"tmscraper/pkg/ui/tui"
)

var (
	// Crawl command flags
	outputDir    string
	stateDir     string
	concurrent   int
	maxPages     int
	provider     string
	supervise    bool
	forceRestart bool
	useTUI       bool
	notify       bool
	verbose      bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the query space and download trademark images",
	Long: `Crawl every query in the configured space and download each image once.

Progress is saved after every completed page. Re-running the command resumes
at the next page of the query that was in progress. Images already on disk are
added to the index at startup and never downloaded again.`,
	Example: `  # Start or resume a crawl with default settings
  tmscraper crawl

  # Store images elsewhere and use 32 download workers
  tmscraper crawl --output /data/tm --concurrent 32

  # Rotate through NordVPN servers when the API blocks
  tmscraper crawl --identity nordvpn

  # Keep crawling after fatal errors, with the dashboard
  tmscraper crawl --supervise --tui

  # Start over from the first query, keeping downloaded images
  tmscraper crawl --force-restart`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&outputDir, "output", "o", "", "image output directory")
	crawlCmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for state.json and the index (default: output directory)")
	crawlCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	crawlCmd.Flags().IntVar(&maxPages, "max-pages", 0, "page ceiling per query")
	crawlCmd.Flags().StringVar(&provider, "identity", "", "identity rotation provider (none, nordvpn, tor)")
	crawlCmd.Flags().BoolVar(&supervise, "supervise", false, "restart the crawl after fatal errors")
	crawlCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "reset the cursor and start from the first query")
	crawlCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal dashboard")
	crawlCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the crawl ends")
	crawlCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every page and rotation")
}

func crawlFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if stateDir != "" {
		flags["state-dir"] = stateDir
	}
	if concurrent > 0 {
		flags["concurrent"] = concurrent
	}
	if maxPages > 0 {
		flags["max-pages"] = maxPages
	}
	if provider != "" {
		flags["identity"] = provider
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(crawlFlags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The dashboard owns the terminal; logs go to the log file only
	var log logger.Logger
	if useTUI {
		if cfg.Logging.File == "" {
			cfg.Logging.File = filepath.Join(cfg.StateDir(), "tmscraper.log")
		}
		log, err = logger.NewWithWriter(&cfg.Logging, io.Discard)
	} else {
		log, err = logger.New(&cfg.Logging)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.WithField("run_id", uuid.NewString())
	logger.SetLogger(log)
	resolveSecrets(cfg, log)

	log.WithFields(map[string]interface{}{
		"output":   cfg.Output.BaseDirectory,
		"state":    cfg.StateDir(),
		"identity": cfg.Identity.Provider,
		"workers":  cfg.Download.ConcurrentDownloads,
	}).Info("tmscraper starting")

	var notifier *ui.Notifier
	if notify {
		notifier = ui.NewNotifier()
	}

	var stats crawler.Stats
	if useTUI {
		stats, err = crawlWithDashboard(ctx, cfg, log)
	} else {
		ui.PrintInfo("Output", cfg.Output.BaseDirectory)
		ui.PrintInfo("Identity", cfg.Identity.Provider)
		ui.PrintHighlight("[CRAWL STARTED]")
		stats, err = supervised(ctx, cfg, ui.NewProgressDisplay(os.Stdout, verbose), log)
	}

	logger.LogMetrics(log, "crawl", map[string]interface{}{
		"pages":             stats.Pages,
		"downloaded":        stats.Downloaded,
		"skipped":           stats.Skipped,
		"failed":            stats.Failed,
		"rotations":         stats.Rotations,
		"queries_completed": stats.QueriesCompleted,
		"duration":          stats.Duration.String(),
	})

	switch {
	case err == nil:
		if !useTUI {
			ui.PrintSuccess("[CRAWL COMPLETE] " + ui.FormatSummary(stats))
		}
		if notifier != nil {
			notifier.SendSuccess("Crawl complete", ui.FormatSummary(stats))
		}
		return nil

	case errors.Is(err, context.Canceled):
		log.Info("Crawl interrupted, progress saved")
		ui.PrintWarning("Crawl interrupted", "progress saved, run crawl again to resume")
		return nil

	default:
		log.WithError(err).Error("Crawl failed")
		if notifier != nil {
			notifier.SendError("Crawl failed", err.Error())
		}
		return err
	}
}

// crawlWithDashboard runs the crawl behind the full-screen dashboard.
// Quitting the dashboard cancels the crawl at the next safe point.
func crawlWithDashboard(ctx context.Context, cfg *config.Config, log logger.Logger) (crawler.Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dash := tui.NewDashboard(cancel)

	type result struct {
		stats crawler.Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := supervised(ctx, cfg, dash, log)
		done <- result{stats, err}
		if err != nil && !errors.Is(err, context.Canceled) {
			dash.Logf("ERROR", "crawl failed: %v", err)
		}
	}()

	// A signal closes the dashboard; after DONE it stays up until the user quits
	go func() {
		<-ctx.Done()
		dash.Close()
	}()

	if err := dash.Run(); err != nil {
		log.WithError(err).Error("Dashboard failed")
	}

	cancel()
	res := <-done
	return res.stats, res.err
}

// supervised runs the crawl and, with --supervise, restarts it after a
// fatal error until it finishes or ctx is cancelled.
func supervised(ctx context.Context, cfg *config.Config, observer crawler.Observer, log logger.Logger) (crawler.Stats, error) {
	var total crawler.Stats
	reset := forceRestart
	started := time.Now()

	for run := 1; ; run++ {
		stats, err := crawlOnce(ctx, cfg, observer, reset, log)
		reset = false
		total = addStats(total, stats)
		total.Duration = time.Since(started)

		if err == nil || !supervise || ctx.Err() != nil {
			return total, err
		}

		log.WithError(err).WithFields(map[string]interface{}{
			"run":   run,
			"delay": cfg.Crawl.RestartDelay.String(),
		}).Error("Crawl failed, restarting")

		if err := retry.Wait(ctx, cfg.Crawl.RestartDelay); err != nil {
			return total, err
		}
	}
}

func addStats(a, b crawler.Stats) crawler.Stats {
	a.Pages += b.Pages
	a.Downloaded += b.Downloaded
	a.Skipped += b.Skipped
	a.Failed += b.Failed
	a.Rotations += b.Rotations
	a.QueriesCompleted += b.QueriesCompleted
	return a
}

// crawlOnce wires every component and runs the driver until DONE or failure
func crawlOnce(ctx context.Context, cfg *config.Config, observer crawler.Observer, reset bool, log logger.Logger) (crawler.Stats, error) {
	st, err := openStores(cfg)
	if err != nil {
		return crawler.Stats{}, err
	}
	defer st.Close()

	if reset {
		if err := st.cursors.Reset(); err != nil {
			return crawler.Stats{}, err
		}
	}

	if _, err := st.reconcile(ctx, log); err != nil {
		return crawler.Stats{}, err
	}

	setup, err := identity.New(ctx, &cfg.Identity, log)
	if err != nil {
		return crawler.Stats{}, fmt.Errorf("failed to set up identity provider: %w", err)
	}
	defer func() {
		if err := setup.Close(); err != nil {
			log.WithError(err).Warn("Failed to shut down identity provider")
		}
	}()

	client := tmview.NewClient(tmview.Options{
		Endpoint:        cfg.API.Endpoint,
		UserAgent:       cfg.API.UserAgent,
		Origin:          cfg.API.Origin,
		Referer:         cfg.API.Referer,
		RequestTimeout:  cfg.API.RequestTimeout,
		DownloadTimeout: cfg.Download.DownloadTimeout,
		HTTPClient:      setup.HTTPClient,
		Limiter:         ratelimit.New(cfg.RateLimit.RequestsPerMinute, time.Minute, true),
		Logger:          log,
	})

	pool := downloader.NewWorkerPool(client, st.images, st.index, downloader.Options{
		Workers:       cfg.Download.ConcurrentDownloads,
		Limiter:       ratelimit.New(cfg.RateLimit.DownloadsPerSecond, time.Second, false),
		RetryAttempts: cfg.Download.RetryAttempts,
		SaveMetadata:  cfg.Output.SaveMetadata,
		Logger:        log,
	})

	queries := buildQueries(cfg)
	driver := crawler.New(queries, st.cursors, client, pool, setup.Rotator, crawler.Options{
		MaxPages: cfg.Crawl.MaxPages,
		Policy: retry.Policy{
			MaxAttempts: cfg.Crawl.MaxFetchAttempts,
			Backoff:     retry.Fixed(cfg.Crawl.RetryDelay),
		},
		Observer: observer,
		Logger:   log,
	})

	return driver.Run(ctx)
}
