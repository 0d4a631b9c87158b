// Package primestream implements a segmented-sieve prime engine with a
// batch-parallel analysis pipeline over consecutive prime pairs.
//
// The engine streams primes in constant memory, answers random-access
// primality queries through a cached oracle, and aggregates gap and
// S = p + p′ − 1 statistics across the analysis range. Results are exact and
// independent of worker count, batch size, and segment size.
//
// # Basic Usage
//
// Running a full analysis:
//
//	analyzer, err := primestream.NewAnalyzer(10_000_000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, err := analyzer.Run()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("primes: %d, S-primes: %d\n", stats.TotalPrimes, stats.TotalSPrimes)
//
// Streaming primes directly:
//
//	stream, err := primestream.NewStream(1_000_000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for p, ok := stream.Next(); ok; p, ok = stream.Next() {
//	    process(p)
//	}
//
// Random-access primality:
//
//	oracle, err := primestream.NewOracle(2_000_000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(oracle.IsPrime(1_999_993))
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: analyzer.go (NewAnalyzer, Run), stream.go (NewStream, Next),
//     oracle.go (NewOracle, IsPrime, EnsureRange), stats.go (Statistics, Record, Merge)
//   - Configuration: analyzer_options.go (Option, With* functions), limits.go (Pow10, MaxLimit)
//   - Prime dump: dump_format.go (header, footer), dump_writer.go, dump_reader.go (OpenDump, Verify)
//   - Sieve core: internal/sieve/ (base table, parallel segment marking), internal/bitvec/
//   - Reporting: internal/report/ (CSV series, HTML report, manifest)
//   - Platform: fallocate_*.go, prefault_*.go, advise_*.go (OS-specific optimizations)
package primestream
