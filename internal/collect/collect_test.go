package collect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadTestCases(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "test_case_0002", "TestB.java"), "class TestB {}")
	write(t, filepath.Join(dir, "test_case_0001", "TestA.java"), "class TestA {}")
	write(t, filepath.Join(dir, "test_case_0001", "pkg", "Util.java"), "class Util {}")
	write(t, filepath.Join(dir, "generation.log"), "log")
	write(t, filepath.Join(dir, "other", "Ignored.java"), "ignored")

	cases, err := ReadTestCases(dir)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "test_case_0001", cases[0].Name)
	assert.Equal(t, []File{
		{Name: "TestA.java", Content: "class TestA {}", Path: "TestA.java"},
		{Name: "Util.java", Content: "class Util {}", Path: "pkg/Util.java"},
	}, cases[0].Files)
	assert.Equal(t, "test_case_0002", cases[1].Name)
	assert.Len(t, cases[1].Files, 1)
}

func TestReadTestCasesEmptySlot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "test_case_0001"), 0755))

	cases, err := ReadTestCases(dir)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.NotNil(t, cases[0].Files)
	assert.Empty(t, cases[0].Files)
}

func TestReadTestCasesMissingFolder(t *testing.T) {
	_, err := ReadTestCases(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
