package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/brkalloc/alloc"
	"github.com/joshuapare/brkalloc/internal/report"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Show the size-class geometry of a configuration",
		Long: `The classes command prints every size class of the selected preset with
the number of chunks it receives at bootstrap and per growth step.

Example:
  brkctl classes
  brkctl classes --config wide
  brkctl classes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(args)
		},
	}
	return cmd
}

// ClassGeometry describes one class of a Config.
type ClassGeometry struct {
	Class       int `json:"class"`
	Size        int `json:"size"`
	InitChunks  int `json:"init_chunks"`
	InitBytes   int `json:"init_bytes"`
	GrowChunks  int `json:"grow_chunks"`
	GrowBytes   int `json:"grow_bytes"`
	ChunkStride int `json:"stride"`
}

// Geometry is the classes command's JSON document.
type Geometry struct {
	Config         string          `json:"config"`
	Align          int             `json:"align"`
	MaxSmall       int             `json:"max_small"`
	HeaderSize     int             `json:"header_size"`
	BootstrapBytes int             `json:"bootstrap_bytes"`
	Classes        []ClassGeometry `json:"classes"`
}

func buildGeometry(cfg alloc.Config) Geometry {
	g := Geometry{
		Config:         cfg.String(),
		Align:          cfg.Align,
		MaxSmall:       cfg.MaxSmall,
		HeaderSize:     alloc.HeaderSize,
		BootstrapBytes: cfg.BootstrapBytes(),
	}
	for class := 1; class < cfg.NumClasses(); class++ {
		size := cfg.ClassSize(class)
		stride := size + alloc.HeaderSize
		g.Classes = append(g.Classes, ClassGeometry{
			Class:       class,
			Size:        size,
			InitChunks:  cfg.InitialChunks(class),
			InitBytes:   cfg.InitialChunks(class) * stride,
			GrowChunks:  cfg.GrowthChunks(class),
			GrowBytes:   cfg.GrowthChunks(class) * stride,
			ChunkStride: stride,
		})
	}
	return g
}

func runClasses(args []string) error {
	cfg, err := selectedConfig()
	if err != nil {
		return err
	}
	g := buildGeometry(cfg)

	if jsonOut {
		return printJSON(g)
	}

	printInfo("Config: %s (align %d, max small %d, header %d bytes)\n", g.Config, g.Align, g.MaxSmall, g.HeaderSize)
	printInfo("Bootstrap region: %s bytes\n\n", report.FormatNumber(int64(g.BootstrapBytes)))
	if quiet {
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "class\tsize\tstride\tinit\tinit bytes\tgrow\tgrow bytes\t")
	for _, c := range g.Classes {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%d\t%s\t\n",
			c.Class, c.Size, c.ChunkStride,
			c.InitChunks, report.FormatNumber(int64(c.InitBytes)),
			c.GrowChunks, report.FormatNumber(int64(c.GrowBytes)),
		)
	}
	return tw.Flush()
}
