package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/brkalloc/alloc"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{33944, "33,944"},
		{67108864, "67,108,864"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in))
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "33.1 KB", FormatBytes(33944))
	assert.Equal(t, "64.0 MB", FormatBytes(64<<20))
}

func TestWriteStats(t *testing.T) {
	s := alloc.Stats{
		AllocCalls: 1200,
		BreakBytes: 33944,
		Classes: []alloc.ClassStat{
			{Class: 1, Size: 8, Total: 128, Free: 28},
			{Class: 2, Size: 16, Total: 0, Free: 0},
			{Class: 3, Size: 24, Total: 21, Free: 21},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, s, Options{}))
	out := buf.String()

	assert.Contains(t, out, "alloc calls:")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "33,944 (33.1 KB)")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	header := -1
	for i, l := range lines {
		if strings.Contains(l, "class") && strings.Contains(l, "in use") {
			header = i
		}
	}
	require.NotEqual(t, -1, header, "class table header missing:\n%s", out)
	table := lines[header+1:]
	require.Len(t, table, 2, "empty classes are hidden")
	assert.Equal(t, []string{"1", "8", "128", "28", "100", "4,096"}, strings.Fields(table[0]))
	assert.Equal(t, []string{"3", "24", "21", "21", "0", "1,008"}, strings.Fields(table[1]))

	buf.Reset()
	require.NoError(t, WriteClasses(&buf, s.Classes, Options{AllClasses: true}))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 4)
}

func TestHexDump(t *testing.T) {
	data := []byte("brkalloc\x00\x01\xe9tail-of-row!")

	var buf bytes.Buffer
	require.NoError(t, HexDump(&buf, 0x1000, data))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "0000000000001000  62 72 6b 61"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], "|brkalloc..étail-|"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0000000000001010 "), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "|of-row!|"), lines[1])
}

func TestHexDump_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HexDump(&buf, 0, nil))
	assert.Empty(t, buf.String())
}
