package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/brkalloc/alloc"
	"github.com/joshuapare/brkalloc/internal/report"
)

var (
	dumpAll   bool
	dumpHex   bool
	dumpFree  []int
	dumpBytes int
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().BoolVar(&dumpAll, "all", false, "Include free chunks")
	cmd.Flags().BoolVar(&dumpHex, "hex", false, "Hex dump the header and payload of every listed chunk")
	cmd.Flags().IntSliceVar(&dumpFree, "free", nil, "Indices of allocations to free before dumping")
	cmd.Flags().IntVar(&dumpBytes, "bytes", 64, "Payload bytes shown per chunk with --hex")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <size>...",
		Short: "Allocate the given sizes and dump the resulting chunk layout",
		Long: `The dump command allocates one block per size argument, optionally frees
some of them, and lists the chunks of the heap segment and the live mapped
blocks in address order.

Example:
  brkctl dump 8 8 24 1000
  brkctl dump 8 16 32 --free 1 --all
  brkctl dump 40 --hex --bytes 16
  brkctl dump 8 600 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

// DumpChunk is one row of the dump command's output.
type DumpChunk struct {
	Header  string `json:"header"`
	Payload string `json:"payload"`
	Class   int    `json:"class,omitempty"`
	Size    int    `json:"size"`
	Origin  string `json:"origin"`
	Free    bool   `json:"free"`
	Request int    `json:"request,omitempty"`
}

func runDump(args []string) error {
	sizes := make([]int, len(args))
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid size %q", arg)
		}
		sizes[i] = n
	}

	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Close()

	ptrs := make([]alloc.Ptr, len(sizes))
	requested := make(map[alloc.Ptr]int, len(sizes))
	for i, n := range sizes {
		p, err := a.Alloc(n)
		if err != nil {
			return fmt.Errorf("allocate %d bytes: %w", n, err)
		}
		ptrs[i] = p
		if p != alloc.Nil {
			requested[p] = n
		}
		printVerbose("alloc(%d) = 0x%x\n", n, uintptr(p))
	}
	for _, i := range dumpFree {
		if i < 0 || i >= len(ptrs) {
			return fmt.Errorf("--free index %d out of range", i)
		}
		if err := a.Release(ptrs[i]); err != nil {
			return err
		}
		delete(requested, ptrs[i])
		printVerbose("free(0x%x)\n", uintptr(ptrs[i]))
	}

	var rows []DumpChunk
	var infos []alloc.ChunkInfo
	err = a.Walk(func(c alloc.ChunkInfo) error {
		if c.Free && !dumpAll {
			return nil
		}
		infos = append(infos, c)
		rows = append(rows, DumpChunk{
			Header:  fmt.Sprintf("0x%x", c.Header),
			Payload: fmt.Sprintf("0x%x", uintptr(c.Payload)),
			Class:   c.Class,
			Size:    c.Size,
			Origin:  c.Origin.String(),
			Free:    c.Free,
			Request: requested[c.Payload],
		})
		return nil
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(rows)
	}

	for i, r := range rows {
		state := "used"
		if r.Free {
			state = "free"
		}
		req := ""
		if r.Request > 0 {
			req = fmt.Sprintf("  request %d", r.Request)
		}
		printInfo("%s  %-6s %-4s class %2d  size %6d%s\n", r.Header, r.Origin, state, r.Class, r.Size, req)
		if dumpHex && !quiet {
			if err := hexChunk(a, infos[i]); err != nil {
				return err
			}
		}
	}
	printInfo("%d chunk(s)\n", len(rows))
	return nil
}

// hexChunk dumps the header and the first dumpBytes payload bytes of c.
func hexChunk(a *alloc.Allocator, c alloc.ChunkInfo) error {
	n := alloc.HeaderSize + min(dumpBytes, c.Size)
	b, err := a.Bytes(alloc.Ptr(c.Header), n)
	if err != nil {
		return err
	}
	return report.HexDump(os.Stdout, c.Header, b)
}
