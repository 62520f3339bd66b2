// Command benchcompare turns `go test -bench` output into a markdown table
// comparing two allocator presets, e.g. the Default and Wide sub-benchmarks
// of BenchmarkMallocBurst.
//
//	go test -bench . -benchmem ./alloc | go run ./scripts/benchcompare -base Default -cand Wide
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Benchmark   string // name with the preset segment and -procs suffix removed
	Preset      string
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs the base and candidate runs of one benchmark.
type ComparisonResult struct {
	Benchmark string
	Base      BenchmarkResult
	Cand      BenchmarkResult
	Speedup   float64 // base ns/op over candidate ns/op
}

var (
	inputFile  = flag.String("input", "", "Input file with benchmark output (stdin if not specified)")
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	basePreset = flag.String("base", "Default", "Preset name of the baseline sub-benchmarks")
	candPreset = flag.String("cand", "Wide", "Preset name of the candidate sub-benchmarks")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(in, []string{*basePreset, *candPreset})
	comparisons := generateComparisons(results, *basePreset, *candPreset)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results, %d comparisons\n", len(results), len(comparisons))
	}

	report := generateMarkdownReport(comparisons, *basePreset, *candPreset, time.Now())
	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
}

// BenchmarkMallocBurst/Default-8    5000    231450 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

// parseBenchmarks reads plain or -json benchmark output and keeps the
// results whose name has one of presets as a path segment.
func parseBenchmarks(r io.Reader, presets []string) []BenchmarkResult {
	var results []BenchmarkResult
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		m := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := m[1]
		bench, preset, ok := splitPreset(name, presets)
		if !ok {
			continue
		}

		res := BenchmarkResult{Name: name, Benchmark: bench, Preset: preset}
		res.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			res.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		}
		if m[5] != "" {
			res.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}
		results = append(results, res)
	}
	return results
}

// splitPreset removes the -procs suffix and the preset segment from name.
func splitPreset(name string, presets []string) (bench, preset string, ok bool) {
	if i := strings.LastIndex(name, "-"); i > strings.LastIndex(name, "/") {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			name = name[:i]
		}
	}
	parts := strings.Split(name, "/")
	for i, p := range parts {
		for _, want := range presets {
			if p == want {
				rest := append(append([]string{}, parts[:i]...), parts[i+1:]...)
				return strings.Join(rest, "/"), p, true
			}
		}
	}
	return "", "", false
}

func generateComparisons(results []BenchmarkResult, base, cand string) []ComparisonResult {
	grouped := make(map[string]map[string]BenchmarkResult)
	for _, r := range results {
		if grouped[r.Benchmark] == nil {
			grouped[r.Benchmark] = make(map[string]BenchmarkResult)
		}
		grouped[r.Benchmark][r.Preset] = r
	}

	var comparisons []ComparisonResult
	for bench, byPreset := range grouped {
		b, okB := byPreset[base]
		c, okC := byPreset[cand]
		if !okB || !okC || c.NsPerOp == 0 {
			continue
		}
		comparisons = append(comparisons, ComparisonResult{
			Benchmark: bench,
			Base:      b,
			Cand:      c,
			Speedup:   b.NsPerOp / c.NsPerOp,
		})
	}
	sort.Slice(comparisons, func(i, j int) bool {
		return comparisons[i].Benchmark < comparisons[j].Benchmark
	})
	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, base, cand string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Preset Comparison\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format(time.DateTime))

	faster := 0
	for _, c := range comparisons {
		if c.Speedup > 1.0 {
			faster++
		}
	}
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Benchmarks compared**: %d\n", len(comparisons))
	fmt.Fprintf(&sb, "- **%s faster than %s**: %d\n\n", cand, base, faster)

	sb.WriteString("## Detailed Results\n\n")
	fmt.Fprintf(&sb, "| Benchmark | %s (ns/op) | %s (ns/op) | Speedup | Allocs |\n", base, cand)
	sb.WriteString("|-----------|------|------|---------|--------|\n")
	for _, c := range comparisons {
		indicator := "✓"
		if c.Speedup < 1.0 {
			indicator = "✗"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %.2fx %s | %d vs %d |\n",
			c.Benchmark,
			formatNumber(c.Base.NsPerOp),
			formatNumber(c.Cand.NsPerOp),
			c.Speedup, indicator,
			c.Base.AllocsPerOp, c.Cand.AllocsPerOp,
		)
	}
	return sb.String()
}

func formatNumber(n float64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.2fs", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fms", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fµs", n/1e3)
	default:
		return fmt.Sprintf("%.0fns", n)
	}
}
