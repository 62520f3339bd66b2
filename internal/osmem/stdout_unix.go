//go:build linux || darwin

package osmem

import (
	"io"

	"golang.org/x/sys/unix"
)

type fdWriter int

// Stdout returns a writer that issues raw write(2) calls on fd 1, bypassing
// os.Stdout and any buffering layered on it.
func Stdout() io.Writer { return fdWriter(1) }

func (fd fdWriter) Write(p []byte) (int, error) {
	return unix.Write(int(fd), p)
}
