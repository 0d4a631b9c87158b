package report

import (
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/sugawarayuuta/sonnet"

	"github.com/tamirms/primestream"
)

// Gap sizes beyond this clutter the spectrum chart without adding signal.
const htmlGapCutoff = 60

type oscPoint struct {
	BinStart    uint64             `json:"bin_start"`
	BinEnd      uint64             `json:"bin_end"`
	PrimeCountP uint64             `json:"prime_count_p"`
	PrimeCountS uint64             `json:"prime_count_s"`
	RatioSP     float64            `json:"ratio_s_p"`
	GapRates    map[string]float64 `json:"gap_rates"`
}

type gapRow struct {
	GapSize          uint64  `json:"gap_size"`
	Count            uint64  `json:"count"`
	Successes        uint64  `json:"successes"`
	SuccessRate      float64 `json:"success_rate"`
	ShieldScore      int     `json:"shield_score"`
	ShieldPrimes     string  `json:"shield_primes"`
	TheoreticalBoost float64 `json:"theoretical_boost"`
}

type htmlData struct {
	Limit      uint64
	Bins       int
	Expected   float64
	TargetGaps template.JS
	Osc        template.JS
	Gaps       template.JS
}

// WriteHTML renders the self-contained HTML report into dir. Chart data is
// built from the in-memory statistics, not re-read from the CSV artifacts.
func WriteHTML(dir string, stats *primestream.Statistics, p Params) error {
	var osc []oscPoint
	for i := range stats.Bins {
		bin := &stats.Bins[i]
		if bin.PrimeCountP == 0 {
			continue
		}
		rates := make(map[string]float64, len(stats.TargetGaps))
		for _, g := range stats.TargetGaps {
			rate := 0.0
			if occ := bin.GapOccurrences[g]; occ > 0 {
				rate = float64(bin.GapSuccesses[g]) / float64(occ)
			}
			rates[strconv.FormatUint(g, 10)] = rate
		}
		osc = append(osc, oscPoint{
			BinStart:    bin.Start,
			BinEnd:      bin.End,
			PrimeCountP: bin.PrimeCountP,
			PrimeCountS: bin.PrimeCountS,
			RatioSP:     float64(bin.PrimeCountS) / float64(bin.PrimeCountP),
			GapRates:    rates,
		})
	}

	gaps := make([]uint64, 0, len(stats.GapSpectrum))
	for gap := range stats.GapSpectrum {
		gaps = append(gaps, gap)
	}
	slices.Sort(gaps)

	var rows []gapRow
	for _, gap := range gaps {
		gc := stats.GapSpectrum[gap]
		if gap > htmlGapCutoff || gc.Successes == 0 {
			continue
		}
		sh := ShieldingFor(gap)
		rows = append(rows, gapRow{
			GapSize:          gap,
			Count:            gc.Occurrences,
			Successes:        gc.Successes,
			SuccessRate:      float64(gc.Successes) / float64(gc.Occurrences),
			ShieldScore:      sh.Score,
			ShieldPrimes:     sh.PrimesList(),
			TheoreticalBoost: sh.Boost,
		})
	}

	// Empty slices must render as [] rather than null for the chart code.
	if osc == nil {
		osc = []oscPoint{}
	}
	if rows == nil {
		rows = []gapRow{}
	}

	oscJSON, err := sonnet.Marshal(osc)
	if err != nil {
		return fmt.Errorf("failed to encode oscillation data: %w", err)
	}
	gapJSON, err := sonnet.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode gap data: %w", err)
	}
	targetJSON, err := sonnet.Marshal(stats.TargetGaps)
	if err != nil {
		return fmt.Errorf("failed to encode target gaps: %w", err)
	}

	expected := 0.0
	if p.Limit >= 2 {
		expected = 1.0 / math.Log(float64(p.Limit))
	}

	f, err := os.Create(filepath.Join(dir, HTMLFile))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", HTMLFile, err)
	}
	data := htmlData{
		Limit:      p.Limit,
		Bins:       p.Bins,
		Expected:   expected,
		TargetGaps: template.JS(targetJSON),
		Osc:        template.JS(oscJSON),
		Gaps:       template.JS(gapJSON),
	}
	if err := htmlTemplate.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", HTMLFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", HTMLFile, err)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Prime Pair Analysis Report</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<style>
  body { font-family: ui-sans-serif, system-ui, sans-serif; margin: 2rem auto; max-width: 1100px; color: #1a1a2e; }
  h1 { font-size: 1.5rem; }
  .meta { color: #555; margin-bottom: 2rem; }
  .chart-box { margin: 2.5rem 0; }
  canvas { max-height: 420px; }
</style>
</head>
<body>
<h1>Prime Pair Analysis</h1>
<p class="meta">limit = {{.Limit}}, bins = {{.Bins}}, expected baseline rate ≈ {{printf "%.6f" .Expected}}</p>

<div class="chart-box">
  <h2>S-candidate verification</h2>
  <canvas id="verification"></canvas>
</div>
<div class="chart-box">
  <h2>Success-rate oscillation across the range</h2>
  <canvas id="oscillation"></canvas>
</div>
<div class="chart-box">
  <h2>Gap spectrum (gaps ≤ 60)</h2>
  <canvas id="spectrum"></canvas>
</div>

<script>
const oscData = {{.Osc}};
const gapData = {{.Gaps}};
const targetGaps = {{.TargetGaps}};
const expectedRate = {{.Expected}};

function leastSquares(points) {
  const n = points.length;
  if (n < 2) return { a: 0, b: 0 };
  let sx = 0, sy = 0, sxx = 0, sxy = 0;
  for (const p of points) { sx += p.x; sy += p.y; sxx += p.x * p.x; sxy += p.x * p.y; }
  const b = (n * sxy - sx * sy) / (n * sxx - sx * sx);
  return { a: (sy - b * sx) / n, b: b };
}

// Per-bin P count against S count, with the least-squares trendline. A
// roughly linear cloud means the S successes track prime density.
const scatter = oscData.map(d => ({ x: d.prime_count_p, y: d.prime_count_s }));
const fit = leastSquares(scatter);
const xs = scatter.map(p => p.x);
const trend = [Math.min(...xs), Math.max(...xs)].map(x => ({ x: x, y: fit.a + fit.b * x }));
new Chart(document.getElementById('verification'), {
  data: {
    datasets: [
      { type: 'scatter', label: 'bins', data: scatter, backgroundColor: '#3b6fc4' },
      { type: 'line', label: 'least-squares fit', data: trend, borderColor: '#c44536',
        pointRadius: 0, borderWidth: 2 }
    ]
  },
  options: {
    scales: {
      x: { title: { display: true, text: 'primes in bin' } },
      y: { title: { display: true, text: 'S-successes in bin' } }
    }
  }
});

const palette = ['#c44536', '#2a9d8f', '#e9c46a', '#7b5ea7', '#f4845f', '#5386e4'];
const oscDatasets = [{
  label: 's/p ratio',
  data: oscData.map(d => d.ratio_s_p),
  borderColor: '#1a1a2e',
  borderWidth: 2,
  pointRadius: 0
}];
targetGaps.forEach((g, i) => {
  oscDatasets.push({
    label: 'gap ' + g + ' success rate',
    data: oscData.map(d => d.gap_rates[String(g)]),
    borderColor: palette[i % palette.length],
    borderWidth: 1,
    pointRadius: 0
  });
});
new Chart(document.getElementById('oscillation'), {
  type: 'line',
  data: { labels: oscData.map(d => d.bin_start), datasets: oscDatasets },
  options: {
    scales: {
      x: { title: { display: true, text: 'bin start' } },
      y: { title: { display: true, text: 'rate' } }
    }
  }
});

new Chart(document.getElementById('spectrum'), {
  data: {
    labels: gapData.map(d => d.gap_size),
    datasets: [
      { type: 'bar', label: 'success rate', data: gapData.map(d => d.success_rate),
        backgroundColor: '#3b6fc4' },
      { type: 'line', label: 'expected baseline', data: gapData.map(() => expectedRate),
        borderColor: '#c44536', pointRadius: 0, borderDash: [6, 4] }
    ]
  },
  options: {
    plugins: {
      tooltip: {
        callbacks: {
          afterBody: items => {
            const d = gapData[items[0].dataIndex];
            if (d.shield_score === 0) return 'no shielding';
            return 'shielded by ' + d.shield_primes + ' (boost ×' + d.theoretical_boost.toFixed(4) + ')';
          }
        }
      }
    },
    scales: {
      x: { title: { display: true, text: 'gap size' } },
      y: { title: { display: true, text: 'rate' } }
    }
  }
});
</script>
</body>
</html>
`))
