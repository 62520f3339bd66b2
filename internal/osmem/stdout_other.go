//go:build !linux && !darwin

package osmem

import (
	"io"
	"os"
)

// Stdout returns os.Stdout where raw descriptor writes are not available.
func Stdout() io.Writer { return os.Stdout }
