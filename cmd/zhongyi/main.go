package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/config"
	"github.com/IshaanNene/zhongyi/internal/engine"
)

var (
	cfgFile   string
	verbose   bool
	outputDir string
	only      []string
	unescape  bool
	parserEng string
	logFormat string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zhongyi",
		Short: "Scrape the TCM catalog into spreadsheets",
		Long: `zhongyi downloads the four catalogs of a traditional Chinese medicine
site (herbs, prescriptions, patent remedies, diet recipes) and appends one
spreadsheet row per detail page.

Running it again appends to the existing workbooks; nothing is truncated.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runScrape,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory the workbooks are written to")
	cmd.Flags().StringSliceVar(&only, "only", nil, "comma-separated category keys to run (herbs, prescriptions, patent, diet)")
	cmd.Flags().BoolVar(&unescape, "unescape", false, "decode HTML entities in values")
	cmd.Flags().StringVar(&parserEng, "engine", "", "detail extraction engine: regex, css, xpath")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "log format: text, json, pretty")

	cmd.AddCommand(versionCmd())
	cmd.AddCommand(configCmd())
	cmd.AddCommand(categoriesCmd())
	return cmd
}

// runScrape runs every selected category in catalog order.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	cats, err := catalog.Select(cfg.Catalog.BaseURL, cfg.Catalog.Only)
	if err != nil {
		return err
	}

	eng := engine.New(cfg, logger)
	defer eng.Close()

	if cfg.Metrics.Enabled {
		eng.Metrics().StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, stopping after current entry", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	keys := make([]string, len(cats))
	for i, c := range cats {
		keys[i] = c.Key
	}
	logger.Info("starting scrape",
		"categories", keys,
		"base_url", cfg.Catalog.BaseURL,
		"output", cfg.Storage.OutputDir,
		"formats", cfg.Storage.Formats,
		"engine", cfg.Parser.Engine,
	)

	start := time.Now()
	results, err := eng.RunAll(ctx, cats)
	printSummary(results, time.Since(start), cfg.Storage.OutputDir)
	return err
}

func printSummary(results []engine.Result, elapsed time.Duration, outputDir string) {
	fmt.Printf("\nScrape finished in %s\n", elapsed.Round(time.Millisecond))
	for _, r := range results {
		fmt.Printf("   %-14s %4d listed, %4d written, %3d skipped, %3d failed (%s)\n",
			r.Category, r.Listed, r.Written, r.Skipped, r.Failed, r.Elapsed.Round(time.Millisecond))
	}
	fmt.Printf("   Output:        %s\n", outputDir)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zhongyi %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  User Agent:        %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Fetcher.PolitenessDelay)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nParser:\n")
			fmt.Printf("  Engine:            %s\n", cfg.Parser.Engine)
			fmt.Printf("  Unescape Entities: %v\n", cfg.Sanitize.UnescapeEntities)
			fmt.Printf("\nCatalog:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Catalog.BaseURL)
			fmt.Printf("  Only:              %s\n", strings.Join(cfg.Catalog.Only, ", "))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Output Dir:        %s\n", cfg.Storage.OutputDir)
			fmt.Printf("  Formats:           %s\n", strings.Join(cfg.Storage.Formats, ", "))
			fmt.Printf("  Mongo Enabled:     %v\n", cfg.Storage.Mongo.Enabled)
			fmt.Printf("\nLogging:\n")
			fmt.Printf("  Level:             %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:            %s\n", cfg.Logging.Format)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// categoriesCmd lists the catalog categories in run order.
func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories in run order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			for _, c := range catalog.All(cfg.Catalog.BaseURL) {
				override := ""
				if c.OverridesName() {
					override = " (name from page title)"
				}
				fmt.Printf("%-14s %-10s %s -> %s%s\n", c.Key, c.Title, c.ListingURL, c.FileName, override)
			}
			return nil
		},
	}
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputDir != "" {
		cfg.Storage.OutputDir = outputDir
	}
	if len(only) > 0 {
		var keys []string
		for _, k := range only {
			if k = strings.TrimSpace(strings.ToLower(k)); k != "" {
				keys = append(keys, k)
			}
		}
		cfg.Catalog.Only = keys
	}
	if unescape {
		cfg.Sanitize.UnescapeEntities = true
	}
	if parserEng != "" {
		cfg.Parser.Engine = strings.ToLower(parserEng)
	}
	if logFormat != "" {
		cfg.Logging.Format = strings.ToLower(logFormat)
	}
}
