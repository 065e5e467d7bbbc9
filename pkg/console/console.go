// Package console prints the operator-facing progress lines of a batch run.
// Styling is dropped automatically when the output is not a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 60

type Console struct {
	mu sync.Mutex
	w  io.Writer

	info    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	heading lipgloss.Style
}

func New(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		heading: r.NewStyle().Bold(true),
	}
}

// Stdout is the console used by the command line tool.
func Stdout() *Console {
	return New(os.Stdout)
}

func Discard() *Console {
	return New(io.Discard)
}

func (c *Console) Println(msg string) {
	c.write(msg)
}

func (c *Console) Printf(format string, args ...any) {
	c.write(fmt.Sprintf(format, args...))
}

func (c *Console) Info(msg string) {
	c.write(c.info.Render("[INFO]") + " " + msg)
}

func (c *Console) Success(msg string) {
	c.write(c.success.Render("[SUCCESS] " + msg))
}

func (c *Console) Error(msg string) {
	c.write(c.failure.Render("[ERROR] " + msg))
}

// Banner prints msg between two rules of ch.
func (c *Console) Banner(ch string, msg string) {
	rule := strings.Repeat(ch, ruleWidth)
	c.write("\n" + rule + "\n" + c.heading.Render(msg) + "\n" + rule)
}

func (c *Console) write(line string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}
