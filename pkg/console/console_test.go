package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleWritesPlainTextToNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Println("Output directory: generated_tests_x")
	c.Info("Generating test case 1/3")
	c.Success("✓ Generation completed")
	c.Error("✗ Failed to generate test case 2")
	c.Banner("=", "Generation Summary")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"Output directory: generated_tests_x",
		"[INFO] Generating test case 1/3",
		"[SUCCESS] ✓ Generation completed",
		"[ERROR] ✗ Failed to generate test case 2",
		"",
		strings.Repeat("=", 60),
		"Generation Summary",
		strings.Repeat("=", 60),
	}, lines)
}

func TestNilConsoleIsSilent(t *testing.T) {
	var c *Console
	assert.NotPanics(t, func() { c.Println("ignored") })
}
