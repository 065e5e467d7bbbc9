package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CompressTarGz packs the contents of srcFolder into tarGzFile.
func CompressTarGz(srcFolder, tarGzFile string) error {
	if _, err := os.Stat(srcFolder); err != nil {
		return fmt.Errorf("failed to stat source folder: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(tarGzFile), 0755); err != nil {
		return fmt.Errorf("failed to create archive folder: %w", err)
	}
	cmd := exec.Command("tar", "-czf", tarGzFile, "-C", srcFolder, ".")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to create tar.gz file: %w", err)
	}
	return nil
}
