// Package report renders run artifacts: the CSV series, the self-contained
// HTML report, and a checksummed manifest.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/primestream"
)

// Artifact file names within an output directory.
const (
	GlobalStatsFile = "global_stats.csv"
	GapSpectrumFile = "gap_spectrum.csv"
	OscillationFile = "oscillation_series.csv"
	HTMLFile        = "index.html"
	ManifestFile    = "manifest.json"
)

// Params records the run configuration the artifacts describe.
type Params struct {
	Limit      uint64
	Bins       int
	TargetGaps []uint64
	SegmentKB  int
	Workers    int
}

// WriteAll renders the three CSV artifacts into dir, creating the directory
// if needed. The artifacts are independent of each other, so they render
// concurrently.
func WriteAll(dir string, stats *primestream.Statistics, p Params) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error { return writeGlobalStats(filepath.Join(dir, GlobalStatsFile), stats) })
	g.Go(func() error { return writeGapSpectrum(filepath.Join(dir, GapSpectrumFile), stats, p) })
	g.Go(func() error { return writeOscillation(filepath.Join(dir, OscillationFile), stats) })
	return g.Wait()
}

func writeCSV(path string, render func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := render(w); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}

// formatFloat renders with the shortest decimal representation that
// round-trips, matching how the series are consumed downstream.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeGlobalStats(path string, stats *primestream.Statistics) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"total_primes_p", "total_primes_s", "global_ratio_s_p"}); err != nil {
			return err
		}
		ratio := 0.0
		if stats.TotalPrimes > 0 {
			ratio = float64(stats.TotalSPrimes) / float64(stats.TotalPrimes)
		}
		return w.Write([]string{
			strconv.FormatUint(stats.TotalPrimes, 10),
			strconv.FormatUint(stats.TotalSPrimes, 10),
			formatFloat(ratio),
		})
	})
}

func writeGapSpectrum(path string, stats *primestream.Statistics, p Params) error {
	gaps := make([]uint64, 0, len(stats.GapSpectrum))
	for gap := range stats.GapSpectrum {
		gaps = append(gaps, gap)
	}
	slices.Sort(gaps)

	// Heuristic density of primes near the limit, the naive expectation a
	// gap's success rate is compared against.
	expected := 0.0
	if p.Limit >= 2 {
		expected = 1.0 / math.Log(float64(p.Limit))
	}

	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{
			"gap_size", "count", "successes", "success_rate",
			"expected_rate_heuristic", "shield_score", "shield_primes", "theoretical_boost",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, gap := range gaps {
			gc := stats.GapSpectrum[gap]
			rate := 0.0
			if gc.Occurrences > 0 {
				rate = float64(gc.Successes) / float64(gc.Occurrences)
			}
			sh := ShieldingFor(gap)
			row := []string{
				strconv.FormatUint(gap, 10),
				strconv.FormatUint(gc.Occurrences, 10),
				strconv.FormatUint(gc.Successes, 10),
				formatFloat(rate),
				formatFloat(expected),
				strconv.Itoa(sh.Score),
				sh.PrimesList(),
				formatFloat(sh.Boost),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeOscillation(path string, stats *primestream.Statistics) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{"bin_start", "bin_end", "prime_count_p", "prime_count_s", "ratio_s_p"}
		for _, g := range stats.TargetGaps {
			header = append(header, fmt.Sprintf("gap_%d_rate", g))
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for i := range stats.Bins {
			bin := &stats.Bins[i]
			// Bins past the last prime carry no signal.
			if bin.PrimeCountP == 0 {
				continue
			}
			row := []string{
				strconv.FormatUint(bin.Start, 10),
				strconv.FormatUint(bin.End, 10),
				strconv.FormatUint(bin.PrimeCountP, 10),
				strconv.FormatUint(bin.PrimeCountS, 10),
				formatFloat(float64(bin.PrimeCountS) / float64(bin.PrimeCountP)),
			}
			for _, g := range stats.TargetGaps {
				rate := 0.0
				if occ := bin.GapOccurrences[g]; occ > 0 {
					rate = float64(bin.GapSuccesses[g]) / float64(occ)
				}
				row = append(row, formatFloat(rate))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
