package report

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sugawarayuuta/sonnet"
	"github.com/zeebo/xxh3"

	"github.com/tamirms/primestream"
)

// Manifest records what a run produced: its parameters, headline totals,
// per-artifact checksums, and a fingerprint over the artifact digests that
// identifies the run as a whole.
type Manifest struct {
	GeneratedAt  string     `json:"generated_at"`
	Limit        uint64     `json:"limit"`
	Bins         int        `json:"bins"`
	TargetGaps   []uint64   `json:"target_gaps"`
	SegmentKB    int        `json:"segment_size_kb"`
	Workers      int        `json:"workers"`
	TotalPrimes  uint64     `json:"total_primes"`
	TotalSPrimes uint64     `json:"total_s_primes"`
	Artifacts    []Artifact `json:"artifacts"`
	Fingerprint  string     `json:"fingerprint"`
}

// Artifact is one produced file with its size and checksum.
type Artifact struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	XXHash64 string `json:"xxhash64"`
}

// WriteManifest hashes every artifact present in dir and writes
// manifest.json beside them. Call it after all other artifacts so the
// checksums cover their final bytes; the HTML report is included when one
// was rendered.
func WriteManifest(dir string, stats *primestream.Statistics, p Params) error {
	names := []string{GlobalStatsFile, GapSpectrumFile, OscillationFile, HTMLFile}

	var artifacts []Artifact
	var digests []byte
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		sum := xxhash.Sum64(data)
		artifacts = append(artifacts, Artifact{
			Name:     name,
			Size:     int64(len(data)),
			XXHash64: fmt.Sprintf("%016x", sum),
		})
		digests = binary.LittleEndian.AppendUint64(digests, sum)
	}

	fp := xxh3.Hash128(digests)
	m := Manifest{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Limit:        p.Limit,
		Bins:         p.Bins,
		TargetGaps:   p.TargetGaps,
		SegmentKB:    p.SegmentKB,
		Workers:      p.Workers,
		TotalPrimes:  stats.TotalPrimes,
		TotalSPrimes: stats.TotalSPrimes,
		Artifacts:    artifacts,
		Fingerprint:  fmt.Sprintf("%016x%016x", fp.Hi, fp.Lo),
	}

	out, err := sonnet.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ManifestFile, err)
	}
	return nil
}
