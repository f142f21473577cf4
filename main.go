package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"issuex/internal/browser"
	"issuex/internal/config"
	"issuex/internal/engine"
	"issuex/internal/formatter"
	"issuex/internal/locator"
	"issuex/internal/page"
)

var version = "dev"

var (
	outputFormat string
	outputFile   string
	timeout      time.Duration
	targetRows   int
	maxScrolls   int
	stagnation   int
	profileName  string
	configFile   string
	showUI       bool
	proxyURL     string
	verbose      bool
)

func main() {
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use:     "issuex [URL]",
		Short:   "Extract issue records from dynamic web tables",
		Version: version,
		Long: `issuex drives a real browser against lazily-rendered issue tables
(SAP Fiori work centers and similar virtualized UIs), scrolls the full
data set into existence, infers the column schema and exports every
row as structured records.`,
		Example: `  # Extract issues and print as a table
  issuex https://workcenter.example.com/issues

  # Export as CSV (format inferred from the extension)
  issuex -o issues.csv https://workcenter.example.com/issues

  # Known row count, watching the browser work
  issuex --target 250 --showui -f json https://workcenter.example.com/issues`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				os.Exit(0)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Output format (table, csv, json, markdown, html)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Navigation timeout")
	rootCmd.Flags().IntVar(&targetRows, "target", 0, "Expected row count (skips the on-page count probe)")
	rootCmd.Flags().IntVar(&maxScrolls, "max-scrolls", 0, "Override the load iteration budget")
	rootCmd.Flags().IntVar(&stagnation, "stagnation", 0, "Override the stagnation limit")
	rootCmd.Flags().StringVar(&profileName, "profile", "", "Locator profile (fiori, generic)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", os.Getenv("ISSUEX_PROXY"), "Proxy URL (e.g. http://127.0.0.1:7890), defaults to ISSUEX_PROXY env var")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	url := normalizeURL(args[0])

	// If output file is specified but format is not, infer format from
	// the file extension.
	if outputFile != "" && !cmd.Flags().Changed("format") {
		if inferred := inferFormatFromExtension(outputFile); inferred != "" {
			outputFormat = inferred
		}
	}
	if err := validateFormat(); err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := browser.New(browser.Config{ProxyURL: proxyURL, Headless: !showUI})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer b.Close()

	p, err := b.Open(url, timeout)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	eng, err := engine.New(page.FromRod(p, cfg.Timeouts.Operation), cfg, log)
	if err != nil {
		return err
	}
	eng.OnProgress = func(pr engine.Progress) {
		fmt.Fprintf(os.Stderr, "\r%s: %d rows", pr.Stage, pr.Rows)
	}

	result, err := eng.Run(context.Background())
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	log.Info("extraction finished",
		zap.Int("extracted", result.Stats.Extracted),
		zap.Int("skipped", result.Stats.Skipped),
		zap.String("load_state", result.Stats.LoadState))

	out, err := formatter.Format(result, outputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
		return nil
	}
	fmt.Println(out)
	return nil
}

func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
	}
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// loadConfig layers the configuration: compiled defaults, then the YAML
// file, then explicit CLI flags.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	for i := range cfg.Profiles {
		locator.Register(&cfg.Profiles[i])
	}
	if targetRows > 0 {
		cfg.Load.TargetOverride = targetRows
	}
	if maxScrolls > 0 {
		cfg.Load.MaxIterations = maxScrolls
	}
	if stagnation > 0 {
		cfg.Load.StagnationLimit = stagnation
	}
	if profileName != "" {
		cfg.Profile = profileName
	}
	return cfg, nil
}

func validateFormat() error {
	validFormats := map[string]bool{
		"table":    true,
		"text":     true,
		"html":     true,
		"markdown": true,
		"json":     true,
		"csv":      true,
	}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}
	return nil
}

// inferFormatFromExtension infers output format from file extension
func inferFormatFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "table"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}

// normalizeURL normalizes URL, adds https:// if no protocol prefix
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	if !strings.HasPrefix(strings.ToLower(rawURL), "http://") && !strings.HasPrefix(strings.ToLower(rawURL), "https://") {
		return "https://" + rawURL
	}
	return rawURL
}
