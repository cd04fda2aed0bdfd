package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Displayer previews saved slides inline in the terminal.
type Displayer struct {
	out     io.Writer
	columns int
}

func New(out io.Writer) *Displayer {
	d := &Displayer{out: out}
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			d.columns = w
		}
	}
	return d
}

// DisplayFile reads the PNG at path and writes it to the terminal.
func (d *Displayer) DisplayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return d.Display(data)
}

func (d *Displayer) Display(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("no image data to display")
	}

	enc := NewKittyEncoder(d.out)
	enc.Columns = d.columns
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}

// IsTerminalSupported reports whether out is a terminal that understands the
// kitty graphics protocol. getenv is usually os.Getenv.
func IsTerminalSupported(out io.Writer, getenv func(string) string) bool {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	termProgram := strings.ToLower(getenv("TERM_PROGRAM"))
	for _, prog := range []string{"kitty", "ghostty", "wezterm"} {
		if termProgram == prog {
			return true
		}
	}

	if getenv("KITTY_WINDOW_ID") != "" {
		return true
	}

	t := strings.ToLower(getenv("TERM"))
	return strings.Contains(t, "kitty") || strings.Contains(t, "ghostty")
}
