package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/brkalloc/alloc"
	"github.com/joshuapare/brkalloc/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options are the parsed command-line flags.
type options struct {
	debug   bool
	help    bool
	version bool
	cfg     alloc.Config
	seed    uint64
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	// Initialize logger (must be before any logging calls)
	if err := logger.Init(logger.Options{
		Enabled: opts.debug,
		Level:   slog.LevelDebug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}
	defer logger.Close()

	if opts.help {
		printHelp()
		return
	}
	if opts.version {
		fmt.Printf("brkview %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		return
	}

	logger.Info("starting brkview", "config", opts.cfg.String(), "seed", opts.seed, "debug", opts.debug)

	m := NewModel(opts.cfg, opts.seed, func(cfg alloc.Config) (*alloc.Allocator, error) {
		return alloc.New(&cfg, alloc.WithLogger(logger.L))
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Clean up resources
	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			logger.Warn("error closing allocator", "error", err)
		}
	}

	logger.Info("brkview exited normally")
}

// parseArgs reads the flags brkview accepts.
func parseArgs(args []string) (options, error) {
	opts := options{cfg: alloc.DefaultConfig, seed: 1}
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--debug", "-d":
			opts.debug = true
		case "--help", "-h":
			opts.help = true
		case "--version", "-v":
			opts.version = true
		case "--wide":
			opts.cfg = alloc.ConfigWide
		case "--routed":
			opts.cfg.ZeroMode = alloc.ZeroRouted
		case "--no-exec":
			opts.cfg.ExecMappings = false
		case "--seed":
			if i+1 >= len(args) {
				return opts, errors.New("--seed needs a value")
			}
			i++
			seed, err := strconv.ParseUint(args[i], 10, 64)
			if err != nil {
				return opts, fmt.Errorf("invalid --seed %q", args[i])
			}
			opts.seed = seed
		default:
			return opts, fmt.Errorf("unknown argument %q", arg)
		}
	}
	return opts, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: brkview [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'brkview --help' for more information.\n")
}

func printHelp() {
	fmt.Println("brkview - Live view of a brkalloc allocator under a random workload")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  brkview [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --wide        Use the 16-byte granule preset")
	fmt.Println("  --routed      Serve calloc through the size classes")
	fmt.Println("  --no-exec     Map large blocks without execute permission")
	fmt.Println("  --seed N      Workload seed (default 1)")
	fmt.Println("  -d, --debug   Write debug logs to ~/.brkalloc/logs")
	fmt.Println("  -v, --version Print version information")
	fmt.Println()
	fmt.Println("KEYS:")
	fmt.Println("  space  Pause / resume       s  Single step")
	fmt.Println("  + / -  Faster / slower      r  Fresh allocator")
	fmt.Println("  v      Verify free lists    c  Copy stats to clipboard")
	fmt.Println("  a      Show all classes     q  Quit")
}
