package prompt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func pipeInput(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestTerminalReadsPipedInput(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminal(pipeInput(t, "alice\r\nhunter2\nlast"), &out)

	line, err := p.Line("Name")
	if err != nil {
		t.Fatalf("Line() error = %v", err)
	}
	if line != "alice" {
		t.Errorf("Line() = %q, want %q", line, "alice")
	}

	secret, err := p.Secret("Passphrase")
	if err != nil {
		t.Fatalf("Secret() error = %v", err)
	}
	if string(secret) != "hunter2" {
		t.Errorf("Secret() = %q, want %q", secret, "hunter2")
	}

	// Last line without newline is still returned.
	last, err := p.Line("More")
	if err != nil {
		t.Fatalf("Line() error = %v", err)
	}
	if last != "last" {
		t.Errorf("Line() = %q, want %q", last, "last")
	}

	if _, err := p.Line("Again"); !errors.Is(err, ErrNoInput) {
		t.Errorf("Line() at EOF error = %v, want %v", err, ErrNoInput)
	}

	if got := out.String(); got != "Name: Passphrase: More: Again: " {
		t.Errorf("prompts = %q", got)
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted("one", "two")

	if a, _ := s.Line("first"); a != "one" {
		t.Errorf("Line() = %q, want one", a)
	}
	if b, _ := s.Secret("second"); string(b) != "two" {
		t.Errorf("Secret() = %q, want two", b)
	}
	if _, err := s.Line("third"); !errors.Is(err, ErrNoInput) {
		t.Errorf("Line() with no answers error = %v, want %v", err, ErrNoInput)
	}
	s.Notice("hello %s", "world")

	if len(s.Asked) != 3 {
		t.Errorf("Asked = %v, want 3 labels", s.Asked)
	}
	if len(s.Notices) != 1 || s.Notices[0] != "hello world" {
		t.Errorf("Notices = %v", s.Notices)
	}
}
