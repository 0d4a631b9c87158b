// Primestream analyzes structural bias in sums of consecutive primes.
//
// For every consecutive prime pair (p', p) up to 10^E the tool forms
// S = p + p' - 1, tests S for primality, and aggregates the results into
// CSV artifacts, an optional HTML report, and a checksum manifest.
//
// Usage:
//
//	primestream -E 8 --bins 1000 --web-report
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/tamirms/primestream"
	"github.com/tamirms/primestream/internal/progress"
	"github.com/tamirms/primestream/internal/report"
)

var (
	// Flags
	maxExponent   int
	numBins       int
	outputDir     string
	segmentSizeKB int
	gapsFlag      string
	webReport     bool
	workers       int
	batchSize     int
	cacheSegments int
	prefetch      bool
	dumpPath      string
	configPath    string
	verbose       bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "primestream",
	Short: "Analyze structural bias in sums of consecutive primes",
	Long: `primestream analyzes structural bias in sums of consecutive primes.

For every consecutive prime pair (p', p) up to 10^E it forms the sum
S = p + p' - 1 and tests S for primality. Counts are aggregated into a
gap spectrum and positional bins over [0, 2*10^E], then written as CSV
artifacts with a checksum manifest, optionally alongside a self-contained
HTML report.

Examples:
  primestream -E 8
  primestream -E 9 --bins 500 --gaps 2,6,30 --web-report
  primestream -E 10 --workers 8 --dump-primes primes.dump`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runAnalysis,
}

func init() {
	rootCmd.Flags().IntVarP(&maxExponent, "max-exponent", "E", -1, "upper bound exponent: analyze primes up to 10^E (required)")
	rootCmd.Flags().IntVarP(&numBins, "bins", "b", primestream.DefaultBins, "number of resolution bins for the oscillation series")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "results", "directory for output artifacts")
	rootCmd.Flags().IntVar(&segmentSizeKB, "segment-size-kb", primestream.DefaultSegmentKB, "sieve segment size in kilobytes")
	rootCmd.Flags().StringVar(&gapsFlag, "gaps", "2,4,6,12,30", "comma-separated prime gap sizes to track")
	rootCmd.Flags().BoolVar(&webReport, "web-report", false, "generate a self-contained HTML report with interactive charts")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines for marking and batch fan-out (0 = all CPUs)")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", primestream.DefaultBatchSize, "primes per parallel batch")
	rootCmd.Flags().IntVar(&cacheSegments, "cache-segments", primestream.DefaultCacheSegments, "sieved segments retained by the primality oracle")
	rootCmd.Flags().BoolVar(&prefetch, "prefetch", false, "sieve oracle segments for a batch before fan-out")
	rootCmd.Flags().StringVar(&dumpPath, "dump-primes", "", "write every produced prime to this dump file")
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML config file; explicit flags override file values")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fileConfig mirrors the command-line flags for the optional YAML config
// file. Gaps are a YAML list rather than a comma-separated string.
type fileConfig struct {
	MaxExponent   int      `yaml:"max_exponent"`
	Bins          int      `yaml:"bins"`
	OutputDir     string   `yaml:"output_dir"`
	SegmentSizeKB int      `yaml:"segment_size_kb"`
	Gaps          []uint64 `yaml:"gaps"`
	WebReport     bool     `yaml:"web_report"`
	Workers       int      `yaml:"workers"`
	BatchSize     int      `yaml:"batch_size"`
	CacheSegments int      `yaml:"cache_segments"`
	Prefetch      bool     `yaml:"prefetch"`
	DumpPrimes    string   `yaml:"dump_primes"`
}

// applyFileConfig overlays values from a YAML config file onto every flag
// the user did not set explicitly on the command line. It returns the gap
// list from the file, which may be empty.
func applyFileConfig(cmd *cobra.Command, path string) ([]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	fc := fileConfig{
		MaxExponent:   maxExponent,
		Bins:          numBins,
		OutputDir:     outputDir,
		SegmentSizeKB: segmentSizeKB,
		WebReport:     webReport,
		Workers:       workers,
		BatchSize:     batchSize,
		CacheSegments: cacheSegments,
		Prefetch:      prefetch,
		DumpPrimes:    dumpPath,
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("max-exponent") {
		maxExponent = fc.MaxExponent
	}
	if !flags.Changed("bins") {
		numBins = fc.Bins
	}
	if !flags.Changed("output-dir") {
		outputDir = fc.OutputDir
	}
	if !flags.Changed("segment-size-kb") {
		segmentSizeKB = fc.SegmentSizeKB
	}
	if !flags.Changed("web-report") {
		webReport = fc.WebReport
	}
	if !flags.Changed("workers") {
		workers = fc.Workers
	}
	if !flags.Changed("batch-size") {
		batchSize = fc.BatchSize
	}
	if !flags.Changed("cache-segments") {
		cacheSegments = fc.CacheSegments
	}
	if !flags.Changed("prefetch") {
		prefetch = fc.Prefetch
	}
	if !flags.Changed("dump-primes") {
		dumpPath = fc.DumpPrimes
	}
	return fc.Gaps, nil
}

// parseGaps splits a comma-separated gap list into values. Semantic
// validation (evenness, zero) happens in NewAnalyzer.
func parseGaps(s string) ([]uint64, error) {
	parts := strings.Split(s, ",")
	gaps := make([]uint64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty gap entry in %q", s)
		}
		g, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid gap %q: %w", part, err)
		}
		gaps = append(gaps, g)
	}
	return gaps, nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	var fileGaps []uint64
	if configPath != "" {
		var err error
		fileGaps, err = applyFileConfig(cmd, configPath)
		if err != nil {
			return err
		}
	}

	gaps, err := parseGaps(gapsFlag)
	if err != nil {
		return err
	}
	if len(fileGaps) > 0 && !cmd.Flags().Changed("gaps") {
		gaps = fileGaps
	}

	if maxExponent < 0 {
		return errors.New("max exponent is required: pass -E or set max_exponent in the config file")
	}
	limit, err := primestream.Pow10(maxExponent)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger.Info("Starting analysis",
		zap.Int("max_exponent", maxExponent),
		zap.Uint64("limit", limit),
		zap.Int("bins", numBins),
		zap.Uint64s("target_gaps", gaps),
		zap.Int("segment_size_kb", segmentSizeKB),
		zap.Int("workers", workers),
		zap.String("output_dir", outputDir),
	)

	opts := []primestream.Option{
		primestream.WithSegmentSize(segmentSizeKB),
		primestream.WithBins(numBins),
		primestream.WithTargetGaps(gaps...),
		primestream.WithWorkers(workers),
		primestream.WithBatchSize(batchSize),
		primestream.WithCacheSegments(cacheSegments),
		primestream.WithPrefetch(prefetch),
	}
	if dumpPath != "" {
		opts = append(opts, primestream.WithDumpFile(dumpPath))
	}

	meter := progress.NewMeter(os.Stderr, limit)
	opts = append(opts, primestream.WithProgress(func(done, _ uint64) {
		meter.Update(done)
	}))

	analyzer, err := primestream.NewAnalyzer(limit, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	stats, err := analyzer.Run()
	if err != nil {
		return err
	}
	meter.Finish()

	ratio := 0.0
	if stats.TotalPrimes > 0 {
		ratio = float64(stats.TotalSPrimes) / float64(stats.TotalPrimes)
	}
	logger.Info("Analysis complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Uint64("primes", stats.TotalPrimes),
		zap.Uint64("prime_sums", stats.TotalSPrimes),
		zap.Float64("ratio", ratio),
	)
	if dumpPath != "" {
		logger.Info("Prime dump written",
			zap.String("path", dumpPath),
			zap.Uint64("primes", stats.TotalPrimes),
		)
	}

	params := report.Params{
		Limit:      limit,
		Bins:       numBins,
		TargetGaps: stats.TargetGaps,
		SegmentKB:  segmentSizeKB,
		Workers:    workers,
	}
	if err := report.WriteAll(outputDir, stats, params); err != nil {
		return err
	}
	if webReport {
		if err := report.WriteHTML(outputDir, stats, params); err != nil {
			return err
		}
		logger.Info("HTML report generated",
			zap.String("path", filepath.Join(outputDir, report.HTMLFile)))
	}
	if err := report.WriteManifest(outputDir, stats, params); err != nil {
		return err
	}
	logger.Info("Results written", zap.String("dir", outputDir))
	return nil
}
