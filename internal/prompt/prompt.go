// Package prompt reads interactive input: visible lines and secrets typed
// with echo suppressed.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/forest6511/totpctl/pkg/failure"
)

// ErrNoInput is returned when input ends before an answer is read.
var ErrNoInput = failure.New(failure.Input, "prompt: no input")

// Prompter asks the user for input.
type Prompter interface {
	// Line reads one visible line without its line terminator.
	Line(label string) (string, error)
	// Secret reads one line with echo suppressed. The caller owns the result
	// and should wipe it.
	Secret(label string) ([]byte, error)
	// Notice prints an informational message.
	Notice(format string, args ...any)
}

// Terminal prompts on out and reads from in. Secrets are read with echo off
// when in is a terminal and as plain lines otherwise, so piped input works.
type Terminal struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

var _ Prompter = (*Terminal)(nil)

// NewTerminal returns a Terminal. Prompts normally go to stderr so stdout
// stays clean for command output.
func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, reader: bufio.NewReader(in)}
}

// Line reads a single line, trimming the trailing newline.
func (t *Terminal) Line(label string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	return t.readLine()
}

// Secret reads a line without echo.
func (t *Terminal) Secret(label string) ([]byte, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	fd := int(t.in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(t.out) // newline after hidden input
		if err != nil {
			return nil, failure.Wrapf(failure.Input, "prompt: failed to read password: %w", err)
		}
		return b, nil
	}
	// Fallback for piped input
	line, err := t.readLine()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// Notice prints a message on its own line.
func (t *Terminal) Notice(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return "", ErrNoInput
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", failure.Wrapf(failure.Input, "prompt: failed to read input: %w", err)
	}
	value := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

// Scripted answers prompts from a fixed list, for tests and non-interactive use.
type Scripted struct {
	Answers []string
	Asked   []string
	Notices []string
}

var _ Prompter = (*Scripted)(nil)

// NewScripted returns a Scripted prompter that will give answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{Answers: answers}
}

func (s *Scripted) next(label string) (string, error) {
	s.Asked = append(s.Asked, label)
	if len(s.Answers) == 0 {
		return "", ErrNoInput
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}

// Line returns the next answer.
func (s *Scripted) Line(label string) (string, error) {
	return s.next(label)
}

// Secret returns the next answer as bytes.
func (s *Scripted) Secret(label string) ([]byte, error) {
	a, err := s.next(label)
	if err != nil {
		return nil, err
	}
	return []byte(a), nil
}

// Notice records the message.
func (s *Scripted) Notice(format string, args ...any) {
	s.Notices = append(s.Notices, fmt.Sprintf(format, args...))
}
