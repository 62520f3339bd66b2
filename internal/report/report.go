// Package report renders allocator statistics and memory dumps as text.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/brkalloc/alloc"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders n with thousands separators.
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatBytes renders n in binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Options selects what WriteStats prints.
type Options struct {
	// AllClasses includes classes that have never been carved.
	AllClasses bool
}

// WriteStats writes a counter summary followed by the class table.
func WriteStats(w io.Writer, s alloc.Stats, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	rows := []struct {
		label string
		value string
	}{
		{"alloc calls", FormatNumber(int64(s.AllocCalls))},
		{"free calls", FormatNumber(int64(s.FreeCalls))},
		{"realloc calls", FormatNumber(int64(s.ReallocCalls))},
		{"calloc calls", FormatNumber(int64(s.ZeroCalls))},
		{"small allocs", FormatNumber(int64(s.SmallAllocs))},
		{"large allocs", FormatNumber(int64(s.LargeAllocs))},
		{"failed allocs", FormatNumber(int64(s.FailedAllocs))},
		{"bootstraps", FormatNumber(int64(s.Bootstraps))},
		{"grow calls", FormatNumber(int64(s.GrowCalls))},
		{"grow bytes", bytesCell(s.GrowBytes)},
		{"break bytes", bytesCell(s.BreakBytes)},
		{"zeroed bytes", bytesCell(s.ZeroBytes)},
		{"live mapped", FormatNumber(int64(s.LiveMapped))},
		{"live mapped bytes", bytesCell(s.LiveMappedBytes)},
		{"unmap failures", FormatNumber(int64(s.UnmapFailures))},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\t\n", r.label, r.value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	return WriteClasses(w, s.Classes, opts)
}

// WriteClasses writes one row per size class.
func WriteClasses(w io.Writer, classes []alloc.ClassStat, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "class\tsize\ttotal\tfree\tin use\tbytes\t")
	for _, c := range classes {
		if c.Total == 0 && !opts.AllClasses {
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t\n",
			c.Class, c.Size,
			FormatNumber(int64(c.Total)),
			FormatNumber(int64(c.Free)),
			FormatNumber(int64(c.InUse())),
			FormatNumber(int64(c.Total)*int64(c.Size+alloc.HeaderSize)),
		)
	}
	return tw.Flush()
}

func bytesCell(n int64) string {
	if n < 1024 {
		return FormatNumber(n)
	}
	return FormatNumber(n) + " (" + FormatBytes(n) + ")"
}

// HexDump writes b as 16-byte rows labelled with addresses starting at addr.
// The text column decodes bytes as Windows-1252 and shows '.' for anything
// unprintable.
func HexDump(w io.Writer, addr uintptr, b []byte) error {
	dec := charmap.Windows1252
	var line strings.Builder
	for off := 0; off < len(b); off += 16 {
		row := b[off:min(off+16, len(b))]
		line.Reset()
		fmt.Fprintf(&line, "%016x ", addr+uintptr(off))
		for i := range 16 {
			if i == 8 {
				line.WriteByte(' ')
			}
			if i < len(row) {
				fmt.Fprintf(&line, " %02x", row[i])
			} else {
				line.WriteString("   ")
			}
		}
		line.WriteString("  |")
		for _, c := range row {
			r := dec.DecodeByte(c)
			if !unicode.IsPrint(r) {
				r = '.'
			}
			line.WriteRune(r)
		}
		line.WriteString("|\n")
		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}
