package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirAt(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0755))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLocatePicksNewestMatchingFolder(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	mkdirAt(t, filepath.Join(dir, "seedA_1"), base)
	mkdirAt(t, filepath.Join(dir, "seedA_2"), base.Add(time.Minute))
	mkdirAt(t, filepath.Join(dir, "seedB_1"), base.Add(2*time.Minute))
	writeFile(t, filepath.Join(dir, "seedA_3"), "a file, not a folder")

	got, err := Locate(dir, "seedA")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seedA_2"), got)
}

func TestLocateNotFound(t *testing.T) {
	dir := t.TempDir()
	mkdirAt(t, filepath.Join(dir, "seedA_1"), time.Now())

	_, err := Locate(dir, "seedC")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = Locate(filepath.Join(dir, "missing"), "seedA")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocateDoesNotMatchLongerSeedNames(t *testing.T) {
	dir := t.TempDir()
	mkdirAt(t, filepath.Join(dir, "TestAB_1"), time.Now())

	_, err := Locate(dir, "TestA")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocateTieBreaksByName(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Now().Add(-time.Minute).Truncate(time.Second)
	mkdirAt(t, filepath.Join(dir, "seedA_10"), stamp)
	mkdirAt(t, filepath.Join(dir, "seedA_20"), stamp)

	got, err := Locate(dir, "seedA")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seedA_20"), got)
}

func TestLocatePrefersObservedFolders(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	mkdirAt(t, filepath.Join(dir, "seedA_old"), base)
	mkdirAt(t, filepath.Join(dir, "seedA_new"), base.Add(time.Minute))

	got, err := Locate(dir, "seedA", filepath.Join(dir, "seedA_old"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seedA_old"), got)

	// hints that match nothing fall back to the full scan
	got, err = Locate(dir, "seedA", filepath.Join(dir, "seedB_1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seedA_new"), got)
}

func TestFinalIterationExpectedFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0", "1", "2"} {
		mkdirAt(t, filepath.Join(dir, name), time.Now())
	}

	got, err := FinalIteration(dir, 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2"), got)
}

func TestFinalIterationFallsBackToHighestNumber(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0", "2", "10", "9", "latest"} {
		mkdirAt(t, filepath.Join(dir, name), time.Now())
	}
	writeFile(t, filepath.Join(dir, "99"), "not a folder")

	got, err := FinalIteration(dir, 50)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "10"), got)
}

func TestMaterializeCopiesFinalIteration(t *testing.T) {
	artifactDir := t.TempDir()
	writeFile(t, filepath.Join(artifactDir, "0", "Old.java"), "old")
	writeFile(t, filepath.Join(artifactDir, "2", "TestA.java"), "class TestA {}")
	writeFile(t, filepath.Join(artifactDir, "2", "pkg", "Helper.java"), "class Helper {}")

	dest := filepath.Join(t.TempDir(), "test_case_0001")
	source, err := Materialize(artifactDir, 3, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(artifactDir, "2"), source)

	content, err := os.ReadFile(filepath.Join(dest, "TestA.java"))
	require.NoError(t, err)
	assert.Equal(t, "class TestA {}", string(content))

	content, err = os.ReadFile(filepath.Join(dest, "pkg", "Helper.java"))
	require.NoError(t, err)
	assert.Equal(t, "class Helper {}", string(content))

	assert.NoFileExists(t, filepath.Join(dest, "Old.java"))
}

func TestMaterializeUsesFallbackFolder(t *testing.T) {
	artifactDir := t.TempDir()
	writeFile(t, filepath.Join(artifactDir, "3", "TestA.java"), "from three")

	dest := filepath.Join(t.TempDir(), "test_case_0001")
	source, err := Materialize(artifactDir, 5, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(artifactDir, "3"), source)
	assert.FileExists(t, filepath.Join(dest, "TestA.java"))
}

func TestMaterializeWithoutIterationsLeavesNoDestination(t *testing.T) {
	artifactDir := t.TempDir()
	writeFile(t, filepath.Join(artifactDir, "notes.txt"), "no iterations here")
	mkdirAt(t, filepath.Join(artifactDir, "tmp"), time.Now())

	dest := filepath.Join(t.TempDir(), "test_case_0001")
	_, err := Materialize(artifactDir, 3, dest)
	assert.ErrorIs(t, err, ErrNoIterations)
	assert.NoDirExists(t, dest)
}
