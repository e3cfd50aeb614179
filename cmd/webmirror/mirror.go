package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webmirror/internal/config"
	"github.com/nao1215/webmirror/internal/database"
	"github.com/nao1215/webmirror/internal/fetch"
	"github.com/nao1215/webmirror/internal/log"
	"github.com/nao1215/webmirror/internal/mirror"
	"github.com/nao1215/webmirror/internal/model"
	"github.com/nao1215/webmirror/internal/report"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [url]",
		Short: "Mirror a website into a zip archive",
		Long: `Mirror crawls one or more websites and packs each into a zip archive.

For every page it downloads the referenced images, stylesheets, scripts,
PDFs, and embedded videos, rewrites the references to local paths, and
stores everything in a single archive that browses offline.

Examples:
  # Mirror a single page with its resources
  webmirror mirror https://example.com/

  # Follow links two hops deep
  webmirror mirror --depth 2 https://example.com/

  # Mirror several sites concurrently
  webmirror mirror https://example.com/ https://example.org/

  # Stay under the start page's directory
  webmirror mirror --focus https://example.com/docs/

  # Route requests through a SOCKS5 proxy
  webmirror mirror --proxy 127.0.0.1:9050 https://example.com/

Configuration file (.webmirror) example:
  sites:
    example.com:
      depth: 2
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runMirrorCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Number of link hops to follow (0 mirrors only the start page)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to mirror per site")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Politeness delay between page fetches")
	cmd.Flags().BoolP("focus", "f", false,
		"Only follow links under the start URL's directory")
	cmd.Flags().Bool("external", false,
		"Follow links to hosts other than the start URL's")

	// Transport flags
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent sessions when mirroring multiple sites")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Directory the archive is written to (default: current directory)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown report instead of the plain summary")
	cmd.Flags().String("report", "",
		"Write the report to the specified file path")
	cmd.Flags().Bool("no-history", false,
		"Don't record this run in the history database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webmirror in current or home directory)")

	return cmd
}

// runMirrorCmd executes the mirror command.
func runMirrorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runMirror(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.Default()

	var err error

	cfg.Depth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.FocusMode, err = cmd.Flags().GetBool("focus")
	if err != nil {
		return nil, err
	}

	external, err := cmd.Flags().GetBool("external")
	if err != nil {
		return nil, err
	}
	cfg.RestrictDomain = !external

	cfg.SOCKSProxy, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportPath, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	cfg.NoHistory, err = cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If the user explicitly specified a path, error when it's missing;
	// otherwise silently run with an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.StartURLs = args

	return cfg, nil
}

// runMirror executes the mirror runs.
func runMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting mirror",
		"start_urls", cfg.StartURLs,
		"depth", cfg.Depth,
		"batch_size", cfg.BatchSize,
	)

	// Open the history database unless disabled
	var db *database.HistoryDB
	if !cfg.NoHistory {
		var err error
		db, err = database.Open(config.DataDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Info("history database opened", "dir", config.DataDir())
	}

	if len(cfg.StartURLs) > 1 && cfg.BatchSize > 1 {
		return runBatchMirror(ctx, cfg, db, logger)
	}

	return runSequentialMirror(ctx, cfg, db, logger)
}

// runSequentialMirror mirrors start URLs one at a time with live progress.
func runSequentialMirror(ctx context.Context, cfg *config.Config, db *database.HistoryDB, logger *slog.Logger) error {
	for _, startURL := range cfg.StartURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Mirroring %s...\n", startURL)
		startTime := time.Now()

		session, err := newSessionForTarget(cfg, startURL, logger,
			mirror.WithOnProgress(func(percent string) {
				fmt.Printf("\r  %s", percent)
			}),
		)
		if err != nil {
			return err
		}

		result, err := session.Mirror(ctx, startURL)
		fmt.Println()
		if err != nil {
			logger.Error("mirror failed", "start_url", startURL, "error", err)
			fmt.Fprintf(os.Stderr, "Mirror error for %s: %v\n", startURL, err)
			continue
		}

		fmt.Printf("Completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

		if err := finishRun(ctx, cfg, db, result, logger); err != nil {
			return err
		}
	}

	return nil
}

// runBatchMirror mirrors multiple start URLs concurrently.
func runBatchMirror(ctx context.Context, cfg *config.Config, db *database.HistoryDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch mirror of %d sites (concurrency: %d)...\n\n",
		len(cfg.StartURLs), cfg.BatchSize)

	startTime := time.Now()

	// Sessions in a batch can't know which URL they'll receive, so
	// site-specific configs don't apply. Use sequential mode for those.
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch mode uses default site config only; per-site settings are ignored",
			"site_count", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use --batch 1 to apply per-site settings.\n\n")
	}

	fetcher, err := newFetcher(cfg, config.SiteConfig{}, logger)
	if err != nil {
		return err
	}

	bp := mirror.NewBatchProcessor(
		func() *mirror.Session {
			// Each session carries its own gate so batch runs don't
			// serialize on the default one.
			return newSession(cfg, cfg.Depth, config.SiteConfig{}, fetcher, logger,
				mirror.WithGate(mirror.NewGate()))
		},
		mirror.WithBatchConcurrency(cfg.BatchSize),
		mirror.WithBatchLogger(logger),
	)

	results, err := bp.ProcessBatch(ctx, cfg.StartURLs)
	if err != nil {
		return err
	}

	for i, result := range results {
		if result == nil {
			fmt.Fprintf(os.Stderr, "Mirror failed: %s\n", cfg.StartURLs[i])
			continue
		}
		fmt.Printf("[%d/%d] Mirrored %s\n", i+1, len(results), result.Report.StartURL)
		if err := finishRun(ctx, cfg, db, result, logger); err != nil {
			return err
		}
	}

	fmt.Printf("\nBatch mirror completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// newSessionForTarget builds a fetcher and session for one start URL,
// applying its site-specific configuration.
func newSessionForTarget(cfg *config.Config, startURL string, logger *slog.Logger, extra ...mirror.SessionOption) (*mirror.Session, error) {
	siteCfg := config.SiteConfig{}
	if u, err := url.Parse(startURL); err == nil {
		siteCfg = cfg.SiteFor(u.Host)
	}

	fetcher, err := newFetcher(cfg, siteCfg, logger)
	if err != nil {
		return nil, err
	}

	depth := cfg.Depth
	if siteCfg.Depth > 0 {
		depth = siteCfg.Depth
	}

	return newSession(cfg, depth, siteCfg, fetcher, logger, extra...), nil
}

// newFetcher builds a fetcher from the global configuration plus one
// site's overrides.
func newFetcher(cfg *config.Config, siteCfg config.SiteConfig, logger *slog.Logger) (*fetch.Fetcher, error) {
	userAgent := cfg.UserAgent
	if siteCfg.UserAgent != "" {
		userAgent = siteCfg.UserAgent
	}

	fetchOpts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(userAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if len(siteCfg.Headers) > 0 {
		fetchOpts = append(fetchOpts, fetch.WithHeaders(siteCfg.Headers))
	}
	if cfg.SOCKSProxy != "" {
		fetchOpts = append(fetchOpts, fetch.WithSOCKSProxy(cfg.SOCKSProxy))
	}

	fetcher, err := fetch.New(fetchOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	return fetcher, nil
}

// newSession builds a session from the global configuration plus one
// site's overrides.
func newSession(cfg *config.Config, depth int, siteCfg config.SiteConfig, fetcher *fetch.Fetcher, logger *slog.Logger, extra ...mirror.SessionOption) *mirror.Session {
	opts := []mirror.SessionOption{
		mirror.WithMaxDepth(depth),
		mirror.WithMaxPages(cfg.MaxPages),
		mirror.WithDelay(cfg.CrawlDelay),
		mirror.WithRestrictDomain(cfg.RestrictDomain),
		mirror.WithFocusMode(cfg.FocusMode),
		mirror.WithIgnorePatterns(siteCfg.IgnorePatterns),
		mirror.WithFollowPatterns(siteCfg.FollowPatterns),
		mirror.WithSessionLogger(logger),
	}
	opts = append(opts, extra...)
	return mirror.NewSession(fetcher, opts...)
}

// finishRun writes the archive file, outputs the report, and records
// the run in the history database.
func finishRun(ctx context.Context, cfg *config.Config, db *database.HistoryDB, result *mirror.Result, logger *slog.Logger) error {
	archivePath := result.Report.ArchiveName
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		archivePath = filepath.Join(cfg.OutputDir, result.Report.ArchiveName)
	}

	if err := os.WriteFile(archivePath, result.Archive, 0600); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	fmt.Printf("Archive written: %s (%d pages, %d bytes)\n",
		archivePath, len(result.Report.Pages), result.Report.ArchiveBytes)

	if err := outputReport(cfg, result.Report); err != nil {
		logger.Error("report failed", "start_url", result.Report.StartURL, "error", err)
	}

	if err := saveSession(ctx, db, result.Report, logger); err != nil {
		logger.Error("failed to save run history", "start_url", result.Report.StartURL, "error", err)
	}

	return nil
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, mirrorReport *model.MirrorReport) error {
	var output *os.File
	if cfg.ReportPath != "" {
		dir := filepath.Dir(cfg.ReportPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(mirrorReport)
		return err
	}

	writer := report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	_, err := writer.Write(mirrorReport)
	return err
}

// saveSession records the run in the history database.
// If db is nil, this function is a no-op.
func saveSession(ctx context.Context, db *database.HistoryDB, mirrorReport *model.MirrorReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.InsertSession(ctx, mirrorReport)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logger.Info("run recorded", "session_id", id, "start_url", mirrorReport.StartURL)
	return nil
}
