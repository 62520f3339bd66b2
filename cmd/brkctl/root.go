package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/brkalloc/alloc"
	"github.com/joshuapare/brkalloc/internal/logger"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	logFile   string
	logJSON   bool
	preset    string
	zeroMode  string
	noExec    bool
	segmentMB int
)

var rootCmd = &cobra.Command{
	Use:   "brkctl",
	Short: "Exercise and inspect the brkalloc size-class allocator",
	Long: `brkctl drives a brkalloc allocator through fixed scenarios and random
workloads and reports its size-class table, counters and chunk layout.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", `Write allocator logs to this file ("-" for stderr)`)
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON records")
	rootCmd.PersistentFlags().StringVar(&preset, "config", "default", "Size-class preset: default or wide")
	rootCmd.PersistentFlags().StringVar(&zeroMode, "zero-mode", "bump", "Calloc strategy: bump or routed")
	rootCmd.PersistentFlags().BoolVar(&noExec, "no-exec", false, "Map large blocks without execute permission")
	rootCmd.PersistentFlags().IntVar(&segmentMB, "segment-mb", 0, "Heap segment size in MiB (0 = preset default)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging enables the process logger when --verbose or --log-file is set.
func initLogging() error {
	if !verbose && logFile == "" {
		return logger.Init(logger.Options{})
	}
	path := logFile
	if path == "" {
		path = "-"
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logger.Init(logger.Options{Enabled: true, Path: path, Level: level, JSON: logJSON})
}

// selectedConfig resolves the global preset flags into a Config.
func selectedConfig() (alloc.Config, error) {
	var cfg alloc.Config
	switch preset {
	case "default", "":
		cfg = alloc.DefaultConfig
	case "wide":
		cfg = alloc.ConfigWide
	default:
		return cfg, fmt.Errorf("unknown config preset %q (want default or wide)", preset)
	}

	switch zeroMode {
	case "bump", "":
		cfg.ZeroMode = alloc.ZeroBump
	case "routed":
		cfg.ZeroMode = alloc.ZeroRouted
	default:
		return cfg, fmt.Errorf("unknown zero mode %q (want bump or routed)", zeroMode)
	}

	if noExec {
		cfg.ExecMappings = false
	}
	if segmentMB > 0 {
		cfg.SegmentBytes = segmentMB << 20
	}
	return cfg, cfg.Validate()
}

// newAllocator builds an allocator from the global flags, logging through logger.L.
func newAllocator() (*alloc.Allocator, error) {
	cfg, err := selectedConfig()
	if err != nil {
		return nil, err
	}
	printVerbose("Allocator: %s, align %d, max small %d, zero mode %s\n",
		cfg, cfg.Align, cfg.MaxSmall, cfg.ZeroMode)
	return alloc.New(&cfg, alloc.WithLogger(logger.L))
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
