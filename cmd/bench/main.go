// Bench is a benchmarking tool for measuring prime generation throughput,
// primality query throughput, and memory usage.
//
// Usage:
//
//	go run ./cmd/bench -mode stream -exponent 8 -workers 4
//
// Flags:
//
//	-mode           Benchmark mode: sieve, stream, or oracle (default: stream)
//	-exponent       Upper bound exponent E; the range is [0, 10^E] (default: 8)
//	-segkb          Sieve segment size in kilobytes (default: 128)
//	-workers        Number of parallel workers (default: 1)
//	-queries        Number of primality queries in oracle mode (default: 5,000,000)
//	-compareworkers Re-run stream mode with workers=1 and compare digests
//	-dump           Write a prime dump to this path and verify it (stream mode)
//	-cpuprofile     Write cpu profile to file
//	-memprofile     Write memory profile to file
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/tamirms/primestream"
	"github.com/tamirms/primestream/internal/sieve"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024 // Convert KB to bytes on Linux
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS usage over a measured phase.
// It samples runtime/metrics on a 10ms ticker instead of ReadMemStats to
// avoid stop-the-world pauses that distort CPU profiles.
type peakSampler struct {
	baselineAlloc uint64
	baselineRSS   uint64
	peakAlloc     atomic.Uint64
	peakRSS       atomic.Uint64
	done          chan struct{}
}

func startPeakSampler() *peakSampler {
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)

	s := &peakSampler{
		baselineAlloc: baseline.Alloc,
		baselineRSS:   getMaxRSS(),
		done:          make(chan struct{}),
	}
	s.peakAlloc.Store(s.baselineAlloc)
	s.peakRSS.Store(s.baselineRSS)

	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.peakAlloc, samples[0].Value.Uint64())
				storeMax(&s.peakRSS, getMaxRSS())
			}
		}
	}()
	return s
}

func storeMax(dst *atomic.Uint64, v uint64) {
	for {
		old := dst.Load()
		if v <= old || dst.CompareAndSwap(old, v) {
			return
		}
	}
}

// stop ends sampling and returns the peak heap and RSS growth in bytes
// over the sampled phase.
func (s *peakSampler) stop() (heapBytes, rssBytes uint64) {
	close(s.done)

	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.peakAlloc, final.Alloc)
	storeMax(&s.peakRSS, getMaxRSS())

	return s.peakAlloc.Load() - s.baselineAlloc, s.peakRSS.Load() - s.baselineRSS
}

func main() {
	modeFlag := flag.String("mode", "stream", "benchmark mode: sieve, stream, or oracle")
	exponentFlag := flag.Int("exponent", 8, "upper bound exponent E; the range is [0, 10^E]")
	segKBFlag := flag.Int("segkb", primestream.DefaultSegmentKB, "sieve segment size in kilobytes")
	workersFlag := flag.Int("workers", 1, "number of parallel workers")
	queriesFlag := flag.Int("queries", 5_000_000, "number of primality queries in oracle mode")
	compareFlag := flag.Bool("compareworkers", false, "re-run stream mode with workers=1 and compare digests")
	dumpFlag := flag.String("dump", "", "write a prime dump to this path and verify it (stream mode)")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile := flag.String("memprofile", "", "write memory profile to file")
	flag.Parse()

	limit, err := primestream.Pow10(*exponentFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad exponent: %v\n", err)
		os.Exit(1)
	}

	sampler := startPeakSampler()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
	}

	var rows [][2]string
	switch *modeFlag {
	case "sieve":
		rows, err = runSieve(limit, *segKBFlag, *workersFlag)
	case "stream":
		rows, err = runStream(limit, *segKBFlag, *workersFlag, *compareFlag, *dumpFlag)
	case "oracle":
		rows, err = runOracle(limit, *segKBFlag, *workersFlag, *queriesFlag)
	default:
		err = fmt.Errorf("unknown mode %q (use sieve, stream, or oracle)", *modeFlag)
	}

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, perr := os.Create(*memprofile)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", perr)
		} else {
			runtime.GC() // Get up-to-date statistics
			if perr := pprof.WriteHeapProfile(f); perr != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", perr)
			}
			_ = f.Close()
		}
	}

	peakHeap, peakRSS := sampler.stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	rows = append(rows,
		[2]string{"Peak heap memory", fmt.Sprintf("%.1f MB", float64(peakHeap)/1_000_000)},
		[2]string{"Peak RSS memory", fmt.Sprintf("%.1f MB", float64(peakRSS)/1_000_000)},
	)
	printResults(*modeFlag, *workersFlag, rows)
}

// runSieve measures raw segment marking throughput, bypassing prime
// scanning entirely.
func runSieve(limit uint64, segKB, workers int) ([][2]string, error) {
	table := sieve.NewTable(sieve.Isqrt(limit))
	gen := sieve.NewGenerator(table, workers)
	span := uint64(segKB) * 1024 * 8

	fmt.Println("Sieving segments...")
	var sink uint64
	start := time.Now()
	for lo := uint64(0); lo <= limit; lo += span {
		v := gen.Sieve(lo, min(lo+span, limit+1))
		words := v.Words()
		sink ^= words[len(words)-1]
	}
	elapsed := time.Since(start)

	return [][2]string{
		{"Limit", fmt.Sprintf("%d", limit)},
		{"Segment size", fmt.Sprintf("%d KB", segKB)},
		{"Elapsed", fmt.Sprintf("%.2f sec", elapsed.Seconds())},
		{"Throughput", fmt.Sprintf("%.2f M numbers/sec", float64(limit+1)/elapsed.Seconds()/1_000_000)},
		{"Mask checksum", fmt.Sprintf("%016x", sink)},
	}, nil
}

// runStream measures full prime iteration throughput, digesting every
// produced prime so runs can be compared for equality.
func runStream(limit uint64, segKB, workers int, compare bool, dumpPath string) ([][2]string, error) {
	fmt.Println("Streaming primes...")
	start := time.Now()
	count, h1, h2, err := streamDigest(limit, segKB, workers)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	rows := [][2]string{
		{"Limit", fmt.Sprintf("%d", limit)},
		{"Primes", fmt.Sprintf("%d", count)},
		{"Elapsed", fmt.Sprintf("%.2f sec", elapsed.Seconds())},
		{"Throughput", fmt.Sprintf("%.2f M primes/sec", float64(count)/elapsed.Seconds()/1_000_000)},
		{"Digest", fmt.Sprintf("%016x%016x", h1, h2)},
	}

	if compare && workers != 1 {
		fmt.Println("Re-streaming with workers=1...")
		_, s1, s2, err := streamDigest(limit, segKB, 1)
		if err != nil {
			return nil, err
		}
		if s1 != h1 || s2 != h2 {
			return nil, fmt.Errorf("digest mismatch: workers=%d produced %016x%016x, workers=1 produced %016x%016x",
				workers, h1, h2, s1, s2)
		}
		rows = append(rows, [2]string{"Digest check", "match (workers=1)"})
	}

	if dumpPath != "" {
		dumpRows, err := runDump(limit, segKB, workers, dumpPath, h1, h2)
		if err != nil {
			return nil, err
		}
		rows = append(rows, dumpRows...)
	}
	return rows, nil
}

// streamDigest iterates every prime up to limit, feeding each value to a
// murmur3-128 digest as 8 little-endian bytes. The digest is a compact
// witness that two runs produced identical prime sequences.
func streamDigest(limit uint64, segKB, workers int) (count, h1, h2 uint64, err error) {
	stream, err := primestream.NewStream(limit,
		primestream.WithSegmentSize(segKB),
		primestream.WithWorkers(workers),
	)
	if err != nil {
		return 0, 0, 0, err
	}

	digest := murmur3.New128()
	var buf [8]byte
	for {
		p, ok := stream.Next()
		if !ok {
			break
		}
		binary.LittleEndian.PutUint64(buf[:], p)
		_, _ = digest.Write(buf[:]) // murmur3 Write never fails
		count++
	}
	h1, h2 = digest.Sum128()
	return count, h1, h2, nil
}

// runDump writes a prime dump through the analyzer, verifies its checksum,
// and re-digests the mapped primes to prove they match the streamed set.
func runDump(limit uint64, segKB, workers int, path string, wantH1, wantH2 uint64) ([][2]string, error) {
	fmt.Println("Writing prime dump...")
	analyzer, err := primestream.NewAnalyzer(limit,
		primestream.WithSegmentSize(segKB),
		primestream.WithWorkers(workers),
		primestream.WithDumpFile(path),
	)
	if err != nil {
		return nil, err
	}
	writeStart := time.Now()
	stats, err := analyzer.Run()
	if err != nil {
		return nil, err
	}
	writeDuration := time.Since(writeStart)

	dump, err := primestream.OpenDump(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dump.Close() }()

	fmt.Println("Verifying prime dump...")
	verifyStart := time.Now()
	if err := dump.Verify(); err != nil {
		return nil, err
	}
	verifyDuration := time.Since(verifyStart)

	digest := murmur3.New128()
	var buf [8]byte
	for i := uint64(0); i < dump.Count(); i++ {
		binary.LittleEndian.PutUint64(buf[:], dump.At(i))
		_, _ = digest.Write(buf[:])
	}
	h1, h2 := digest.Sum128()
	if h1 != wantH1 || h2 != wantH2 {
		return nil, fmt.Errorf("dump digest %016x%016x does not match stream digest %016x%016x",
			h1, h2, wantH1, wantH2)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return [][2]string{
		{"Dump primes", fmt.Sprintf("%d", stats.TotalPrimes)},
		{"Dump write", fmt.Sprintf("%.2f sec", writeDuration.Seconds())},
		{"Dump verify", fmt.Sprintf("%.2f sec", verifyDuration.Seconds())},
		{"Dump size", fmt.Sprintf("%.1f MB", float64(info.Size())/1_000_000)},
		{"Dump digest", "match (stream)"},
	}, nil
}

// runOracle measures random primality query throughput. Queries are drawn
// uniformly from [0, limit], mixing table lookups below the square root
// with segment faults above it.
func runOracle(limit uint64, segKB, workers, queries int) ([][2]string, error) {
	oracle, err := primestream.NewOracle(limit,
		primestream.WithSegmentSize(segKB),
		primestream.WithWorkers(workers),
	)
	if err != nil {
		return nil, err
	}

	fmt.Println("Generating queries...")
	values := make([]uint64, queries)
	for i := range values {
		values[i] = mrand.Uint64N(limit + 1)
	}

	fmt.Println("Warming up queries...")
	for i := 0; i < 10_000 && i < len(values); i++ {
		_ = oracle.IsPrime(values[i])
	}

	fmt.Println("Benchmarking queries...")
	var hits uint64
	start := time.Now()
	for _, v := range values {
		if oracle.IsPrime(v) {
			hits++
		}
	}
	elapsed := time.Since(start)
	avgLatency := float64(elapsed.Nanoseconds()) / float64(queries) / 1000

	return [][2]string{
		{"Limit", fmt.Sprintf("%d", limit)},
		{"Queries", fmt.Sprintf("%d", queries)},
		{"Primes found", fmt.Sprintf("%d", hits)},
		{"Elapsed", fmt.Sprintf("%.2f sec", elapsed.Seconds())},
		{"Throughput", fmt.Sprintf("%.2f M queries/sec", float64(queries)/elapsed.Seconds()/1_000_000)},
		{"Query latency", fmt.Sprintf("%.2f μs", avgLatency)},
	}, nil
}

func printResults(mode string, workers int, rows [][2]string) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════╦══════════════════════════════════╗\n")
	fmt.Printf("║ Mode: %-16s║ Workers: %-24d║\n", mode, workers)
	fmt.Printf("╠═══════════════════════╬══════════════════════════════════╣\n")
	for _, r := range rows {
		fmt.Printf("║ %-22s║ %-33s║\n", r[0], r[1])
	}
	fmt.Printf("╚═══════════════════════╩══════════════════════════════════╝\n")
}
