// Package display drives the live code view: periodic recomputation of every
// entry's code, selection and scrolling, and the view model handed to a
// renderer. It performs no terminal I/O itself.
package display

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/forest6511/totpctl/pkg/totp"
	"github.com/forest6511/totpctl/pkg/vault"
)

// Defaults for the interactive loop.
const (
	DefaultPollInterval = 200 * time.Millisecond
	DefaultRowHeight    = 5

	// UrgentThreshold is the remaining seconds at or below which a row is urgent.
	UrgentThreshold = 5
)

// Direction is a selection move.
type Direction int

const (
	Up Direction = iota
	Down
)

// Key is an input event understood by the loop.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyQuit
)

// Renderer draws view models and supplies input. Implementations own the terminal.
type Renderer interface {
	Render(vm ViewModel) error
	// PollInput waits up to timeout for a key.
	PollInput(timeout time.Duration) (Key, bool)
	// Height returns the number of text rows available for entries.
	Height() int
}

// Row is one visible entry.
type Row struct {
	Name      string
	Label     string
	Code      string // grouped for reading, e.g. "123 456"
	Remaining int
	Period    int
	Ratio     float64
	Selected  bool
	Urgent    bool
}

// ViewModel is a snapshot of what should be on screen.
type ViewModel struct {
	Rows      []Row
	Total     int
	Offset    int
	Selected  int
	RowHeight int // text rows each entry occupies
}

// Empty reports whether there is nothing to show.
func (vm ViewModel) Empty() bool {
	return vm.Total == 0
}

// Coordinator holds the display state. It is not safe for concurrent use;
// Run drives it from a single goroutine.
type Coordinator struct {
	entries []vault.Entry
	codes   []totp.Code
	last    []int // remaining seconds at the previous tick, -1 before the first

	selected int
	offset   int
	window   int

	rowHeight int
	poll      time.Duration
	clock     totp.Clock
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the time source used by Run.
func WithClock(c totp.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithPollInterval sets how long Run waits for input between ticks.
func WithPollInterval(d time.Duration) Option {
	return func(co *Coordinator) {
		if d > 0 {
			co.poll = d
		}
	}
}

// WithRowHeight sets the number of text rows one entry occupies.
func WithRowHeight(h int) Option {
	return func(co *Coordinator) {
		if h > 0 {
			co.rowHeight = h
		}
	}
}

// New returns a Coordinator over entries, which are shown in the given order.
func New(entries []vault.Entry, opts ...Option) *Coordinator {
	c := &Coordinator{
		window:    1,
		rowHeight: DefaultRowHeight,
		poll:      DefaultPollInterval,
		clock:     totp.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.setEntries(entries)
	return c
}

func (c *Coordinator) setEntries(entries []vault.Entry) {
	c.entries = entries
	c.codes = make([]totp.Code, len(entries))
	c.last = make([]int, len(entries))
	for i := range c.last {
		c.last[i] = -1
	}
}

// Tick recomputes every entry for now. All codes come from the same instant
// in one pass, so entries sharing a window boundary change together. It
// reports whether any entry rolled over into a new window since the previous
// tick.
func (c *Coordinator) Tick(now time.Time) (rolled bool, err error) {
	codes := make([]totp.Code, len(c.entries))
	for i, e := range c.entries {
		code, err := totp.Generate(e.Params(), now)
		if err != nil {
			return false, fmt.Errorf("display: %q: %w", e.Name, err)
		}
		if c.last[i] >= 0 && code.Remaining > c.last[i] {
			rolled = true
		}
		codes[i] = code
	}
	copy(c.codes, codes)
	for i, code := range codes {
		c.last[i] = code.Remaining
	}
	return rolled, nil
}

// Navigate moves the selection with wraparound and scrolls by the minimum
// needed to keep it visible.
func (c *Coordinator) Navigate(dir Direction) {
	n := len(c.entries)
	if n == 0 {
		return
	}
	switch dir {
	case Up:
		c.selected = (c.selected - 1 + n) % n
	case Down:
		c.selected = (c.selected + 1) % n
	}
	c.clampScroll()
}

// Resize sets the window from the available height in text rows.
func (c *Coordinator) Resize(height int) {
	c.window = max(1, height/c.rowHeight)
	c.clampScroll()
}

// Replace swaps in a new set of entries, keeping the selected name if it is
// still present.
func (c *Coordinator) Replace(entries []vault.Entry) {
	var name string
	if c.selected < len(c.entries) {
		name = c.entries[c.selected].Name
	}
	c.setEntries(entries)

	_, idx, found := lo.FindIndexOf(entries, func(e vault.Entry) bool { return e.Name == name })
	switch {
	case found:
		c.selected = idx
	case c.selected >= len(entries):
		c.selected = max(0, len(entries)-1)
	}
	c.clampScroll()
}

func (c *Coordinator) clampScroll() {
	n := len(c.entries)
	if n == 0 {
		c.selected, c.offset = 0, 0
		return
	}
	if c.selected < c.offset {
		c.offset = c.selected
	}
	if c.selected >= c.offset+c.window {
		c.offset = c.selected - c.window + 1
	}
	c.offset = max(0, min(c.offset, n-c.window))
}

// Selected returns the selected index.
func (c *Coordinator) Selected() int {
	return c.selected
}

// Offset returns the index of the first visible entry.
func (c *Coordinator) Offset() int {
	return c.offset
}

// Window returns the number of visible entries.
func (c *Coordinator) Window() int {
	return c.window
}

// View returns the rows inside the window with their current codes.
func (c *Coordinator) View() ViewModel {
	vm := ViewModel{Total: len(c.entries), Offset: c.offset, Selected: c.selected, RowHeight: c.rowHeight}
	end := min(len(c.entries), c.offset+c.window)
	for i := c.offset; i < end; i++ {
		e, code := c.entries[i], c.codes[i]
		row := Row{
			Name:      e.Name,
			Label:     e.Label(),
			Code:      totp.Placeholder(e.Digits),
			Remaining: code.Remaining,
			Period:    e.Period,
			Ratio:     code.Ratio(),
			Selected:  i == c.selected,
			Urgent:    code.Value != "" && code.Remaining <= UrgentThreshold,
		}
		if code.Value != "" {
			row.Code = totp.FormatCode(code.Value)
		}
		vm.Rows = append(vm.Rows, row)
	}
	return vm
}

// Run is the interactive loop: tick, render, wait for input, handle it. It
// returns nil on the quit key or when ctx is cancelled, and the first tick or
// render error otherwise. Entry sets received on reload replace the current
// ones between polls.
func (c *Coordinator) Run(ctx context.Context, r Renderer, reload <-chan []vault.Entry) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case entries, ok := <-reload:
			if ok {
				c.Replace(entries)
			}
		default:
		}

		c.Resize(r.Height())
		if _, err := c.Tick(c.clock.Now()); err != nil {
			return err
		}
		if err := r.Render(c.View()); err != nil {
			return fmt.Errorf("display: render: %w", err)
		}

		key, ok := r.PollInput(c.poll)
		if !ok {
			continue
		}
		switch key {
		case KeyQuit:
			return nil
		case KeyUp:
			c.Navigate(Up)
		case KeyDown:
			c.Navigate(Down)
		}
	}
}
