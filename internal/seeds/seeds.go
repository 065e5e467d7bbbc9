package seeds

import (
	"batchgen/internal/types"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrSeedsDirNotFound = errors.New("seeds directory not found")

// Discover lists the seed files in dir whose names start with prefix and end
// with suffix, sorted lexicographically by file name.
func Discover(dir, prefix, suffix string) ([]types.Seed, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSeedsDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat seeds directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSeedsDirNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	seeds := make([]types.Seed, 0, len(names))
	for _, name := range names {
		seeds = append(seeds, types.Seed{
			Name: strings.TrimSuffix(name, suffix),
			File: filepath.Join(dir, name),
		})
	}
	return seeds, nil
}

// Pick returns the seed assigned to the 1-based caseIndex. Seeds are reused
// round-robin when there are more cases than seeds.
func Pick(seeds []types.Seed, caseIndex int) types.Seed {
	return seeds[(caseIndex-1)%len(seeds)]
}

// Names returns the seed names, truncated to limit entries with a trailing
// "..." marker when there are more.
func Names(seeds []types.Seed, limit int) string {
	names := make([]string, 0, limit)
	for i, seed := range seeds {
		if i == limit {
			break
		}
		names = append(names, seed.Name)
	}
	out := strings.Join(names, ", ")
	if len(seeds) > limit {
		out += "..."
	}
	return out
}
