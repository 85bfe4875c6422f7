// Package clipboard bridges selection copy to the system clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnsupported indicates no clipboard utility is available on this system.
var ErrUnsupported = errors.New("clipboard: no clipboard utility available")

// System writes to the OS clipboard via the platform's native mechanism
// (pbcopy, xclip/xsel, or the Windows API).
type System struct{}

// Copy places text on the system clipboard.
func (System) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Mock is a no-op clipboard for testing.
type Mock struct{}

// Copy is a no-op that always succeeds.
func (Mock) Copy(string) error { return nil }
