package artifact

import (
	"batchgen/internal/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var ErrNoIterations = errors.New("no iteration folder found")

// FinalIteration returns the folder holding the last iteration's output. The
// tool names it iterations-1; if that is missing the highest numerically named
// subdirectory is used instead.
func FinalIteration(artifactDir string, iterations int) (string, error) {
	expected := filepath.Join(artifactDir, strconv.Itoa(iterations-1))
	if info, err := os.Stat(expected); err == nil && info.IsDir() {
		return expected, nil
	}

	entries, err := os.ReadDir(artifactDir)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact folder: %w", err)
	}

	best, bestName := -1, ""
	for _, entry := range entries {
		n, ok := iterationNumber(entry.Name())
		if !ok || n <= best {
			continue
		}
		info, err := os.Stat(filepath.Join(artifactDir, entry.Name()))
		if err != nil || !info.IsDir() {
			continue
		}
		best, bestName = n, entry.Name()
	}
	if best < 0 {
		return "", fmt.Errorf("%w in %s", ErrNoIterations, artifactDir)
	}
	return filepath.Join(artifactDir, bestName), nil
}

// iterationNumber accepts names made only of ASCII digits.
func iterationNumber(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Materialize copies the final iteration of artifactDir into dest and returns
// the folder it copied from. dest is not created when no iteration exists.
func Materialize(artifactDir string, iterations int, dest string) (string, error) {
	source, err := FinalIteration(artifactDir, iterations)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return source, fmt.Errorf("failed to create test case folder: %w", err)
	}
	if err := utils.CopyTree(source, dest); err != nil {
		return source, fmt.Errorf("failed to copy test case: %w", err)
	}
	return source, nil
}
