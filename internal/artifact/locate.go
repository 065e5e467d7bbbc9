// Package artifact finds the scratch folder the generation tool produced for a
// seed and copies its final iteration into a test case slot.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrArtifactNotFound = errors.New("generated mutant folder not found")

type candidate struct {
	path    string
	name    string
	modTime time.Time
}

// Locate returns the newest directory directly under mutantsDir whose name
// starts with "<seedName>_". When observed names are given and at least one of
// them matches, only those are considered.
func Locate(mutantsDir, seedName string, observed ...string) (string, error) {
	entries, err := os.ReadDir(mutantsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: scratch directory %s does not exist", ErrArtifactNotFound, mutantsDir)
		}
		return "", fmt.Errorf("failed to read scratch directory: %w", err)
	}

	prefix := seedName + "_"
	hints := make(map[string]struct{}, len(observed))
	for _, name := range observed {
		hints[filepath.Base(name)] = struct{}{}
	}

	var all, hinted []candidate
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(mutantsDir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		c := candidate{path: path, name: entry.Name(), modTime: info.ModTime()}
		all = append(all, c)
		if _, ok := hints[c.name]; ok {
			hinted = append(hinted, c)
		}
	}

	pool := all
	if len(hinted) > 0 {
		pool = hinted
	}
	if len(pool) == 0 {
		return "", fmt.Errorf("%w: no %s* folder in %s", ErrArtifactNotFound, prefix, mutantsDir)
	}

	newest := pool[0]
	for _, c := range pool[1:] {
		if c.modTime.After(newest.modTime) || (c.modTime.Equal(newest.modTime) && c.name > newest.name) {
			newest = c
		}
	}
	return newest.path, nil
}
