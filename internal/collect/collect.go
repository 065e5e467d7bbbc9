// Package collect reads materialized test cases back from an output folder.
package collect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const slotPrefix = "test_case_"

type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Path    string `json:"path"` // relative to the test case folder, slash separated
}

type TestCase struct {
	Name  string `json:"name"`
	Files []File `json:"files"`
}

// ReadTestCases loads every test_case_* folder under outputDir, sorted by
// name, with all regular files below it.
func ReadTestCases(outputDir string) ([]TestCase, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), slotPrefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	testCases := make([]TestCase, 0, len(names))
	for _, name := range names {
		files, err := readFiles(filepath.Join(outputDir, name))
		if err != nil {
			return nil, err
		}
		testCases = append(testCases, TestCase{Name: name, Files: files})
	}
	return testCases, nil
}

func readFiles(root string) ([]File, error) {
	files := []File{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, File{
			Name:    d.Name(),
			Content: string(content),
			Path:    filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect %s: %w", filepath.Base(root), err)
	}
	return files, nil
}
