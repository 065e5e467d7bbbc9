// Package runlog holds the per-run transcript (generation.log).
//
// The transcript receives raw subprocess output verbatim plus the driver's
// own banner and progress lines. It is passed explicitly to every component
// that writes to it.
package runlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const ruleWidth = 60

type Transcript struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool
}

// Create truncates or creates the transcript file at path.
func Create(path string) (*Transcript, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	return &Transcript{w: f, closer: f}, nil
}

// New wraps w. Close does not close w.
func New(w io.Writer) *Transcript {
	return &Transcript{w: w}
}

// Discard returns a transcript that drops everything.
func Discard() *Transcript {
	return New(io.Discard)
}

// Write is safe for concurrent use; stdout and stderr copiers share it.
func (t *Transcript) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return len(p), nil
	}
	return t.w.Write(p)
}

func (t *Transcript) Println(msg string) {
	_, _ = t.Write([]byte(msg + "\n"))
}

func (t *Transcript) Printf(format string, args ...any) {
	t.Println(fmt.Sprintf(format, args...))
}

// Banner writes msg framed by two rules of ch.
func (t *Transcript) Banner(ch string, msg string) {
	rule := Rule(ch)
	t.Println("\n" + rule + "\n" + msg + "\n" + rule)
}

func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Rule returns a horizontal rule made of ch.
func Rule(ch string) string {
	return strings.Repeat(ch, ruleWidth)
}
