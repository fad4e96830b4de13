// Package tui renders the live code view on a terminal.
//
// Terminal implements display.Renderer. Enter switches the terminal to raw
// mode and the alternate screen; the restore function it returns undoes both
// and is safe to call more than once, so callers can both defer it and call
// it from a panic or signal path.
package tui

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/forest6511/totpctl/internal/display"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[?25l"
	leaveAltScreen = "\x1b[?25h\x1b[?1049l"
	clearScreen    = "\x1b[H\x1b[2J"

	// chrome is the number of lines used by the header and footer.
	chrome = 2

	fallbackWidth  = 80
	fallbackHeight = 24
)

// Terminal draws frames on out and reads keys from in.
type Terminal struct {
	in  *os.File
	out *os.File

	keys       chan display.Key
	readerOnce sync.Once
}

var _ display.Renderer = (*Terminal)(nil)

// New returns a Terminal on the given files, normally os.Stdin and os.Stdout.
func New(in, out *os.File) *Terminal {
	return &Terminal{in: in, out: out, keys: make(chan display.Key, 16)}
}

// Enter puts the input into raw mode, switches to the alternate screen and
// hides the cursor. The returned restore function is idempotent.
func (t *Terminal) Enter() (restore func(), err error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("tui: standard input is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("tui: enable raw mode: %w", err)
	}
	io.WriteString(t.out, enterAltScreen)

	var once sync.Once
	return func() {
		once.Do(func() {
			io.WriteString(t.out, leaveAltScreen)
			_ = term.Restore(fd, state)
		})
	}, nil
}

func (t *Terminal) size() (width, height int) {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return fallbackWidth, fallbackHeight
	}
	return w, h
}

// Height returns the rows available for entries.
func (t *Terminal) Height() int {
	_, h := t.size()
	return max(0, h-chrome)
}

// Render draws vm.
func (t *Terminal) Render(vm display.ViewModel) error {
	w, _ := t.size()
	_, err := io.WriteString(t.out, clearScreen+Frame(vm, w))
	return err
}

// PollInput waits up to timeout for a key. The first call starts a reader
// goroutine that lives until the process exits.
func (t *Terminal) PollInput(timeout time.Duration) (display.Key, bool) {
	t.readerOnce.Do(func() { go t.readKeys() })

	select {
	case k := <-t.keys:
		return k, true
	case <-time.After(timeout):
		return display.KeyNone, false
	}
}

func (t *Terminal) readKeys() {
	buf := make([]byte, 32)
	for {
		n, err := t.in.Read(buf)
		if err != nil {
			t.keys <- display.KeyQuit
			return
		}
		for _, k := range ParseKeys(buf[:n]) {
			t.keys <- k
		}
	}
}

// ParseKeys decodes one read from a raw-mode terminal. Arrow keys and j/k
// move; q, Esc and Ctrl-C quit. Anything else is ignored.
func ParseKeys(b []byte) []display.Key {
	var keys []display.Key
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case 'q', 'Q', 0x03:
			keys = append(keys, display.KeyQuit)
		case 'k', 'K':
			keys = append(keys, display.KeyUp)
		case 'j', 'J':
			keys = append(keys, display.KeyDown)
		case 0x1b:
			if i+2 < len(b) && (b[i+1] == '[' || b[i+1] == 'O') {
				switch b[i+2] {
				case 'A':
					keys = append(keys, display.KeyUp)
				case 'B':
					keys = append(keys, display.KeyDown)
				}
				i += 2
				continue
			}
			keys = append(keys, display.KeyQuit)
		}
	}
	return keys
}

var (
	titleStyle    = color.New(color.Bold)
	selectedStyle = color.New(color.FgCyan, color.Bold)
	labelStyle    = color.New(color.Faint)
	codeStyle     = color.New(color.FgGreen, color.Bold)
	urgentStyle   = color.New(color.FgRed, color.Bold)
)

// Frame lays out vm as text for a terminal width columns wide. Lines end in
// CRLF because output post-processing is off in raw mode.
func Frame(vm display.ViewModel, width int) string {
	var b bytes.Buffer
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	line(titleStyle.Sprint("totpctl") + labelStyle.Sprint("  ↑/k ↓/j move  q quit"))
	if vm.Empty() {
		line("")
		line("No credentials yet. Add one with: totpctl add <name> [key]")
		return b.String()
	}

	height := vm.RowHeight
	if height <= 0 {
		height = display.DefaultRowHeight
	}
	barWidth := max(10, min(40, width-16))
	for _, row := range vm.Rows {
		for _, l := range card(row, height, barWidth) {
			line(l)
		}
	}
	b.WriteString(labelStyle.Sprintf("%d-%d of %d", vm.Offset+1, vm.Offset+len(vm.Rows), vm.Total))
	return b.String()
}

// card renders one entry as exactly height lines: name, code and gauge when
// there is room, padded with blank lines. A single line holds name and code.
func card(row display.Row, height, barWidth int) []string {
	name := "  " + row.Name
	if row.Selected {
		name = selectedStyle.Sprint("> " + row.Name)
	}
	if row.Label != "" {
		name += "  " + labelStyle.Sprint(row.Label)
	}

	style := codeStyle
	if row.Urgent {
		style = urgentStyle
	}
	code := style.Sprint(row.Code) + fmt.Sprintf("   %2ds", row.Remaining)

	if height == 1 {
		return []string{name + "    " + code}
	}
	lines := []string{name, "    " + code, "    " + gauge(row.Ratio, barWidth)}
	if height < len(lines) {
		return lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

func gauge(ratio float64, width int) string {
	ratio = max(0, min(1, ratio))
	filled := int(ratio*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
