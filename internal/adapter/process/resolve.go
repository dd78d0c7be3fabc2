package process

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cwygoda/gather/internal/domain"
)

// Resolve turns a configured executable location into an absolute path.
// A directory yields its first executable entry in name order; a file must be
// executable itself. A bare name with no path separator that does not exist
// locally is looked up on PATH.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", domain.ErrExecutableNotSet
	}

	info, err := os.Stat(path)
	if err != nil {
		if !strings.ContainsRune(path, filepath.Separator) {
			if found, lookErr := exec.LookPath(path); lookErr == nil {
				return filepath.Abs(found)
			}
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrNoExecutableFound, path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		for _, entry := range entries {
			fi, err := entry.Info()
			if err != nil {
				continue
			}
			if IsExecutable(fi) {
				return filepath.Abs(filepath.Join(path, entry.Name()))
			}
		}
		return "", fmt.Errorf("%w in %s", domain.ErrNoExecutableFound, path)
	}

	if IsExecutable(info) {
		return filepath.Abs(path)
	}
	return "", fmt.Errorf("%w: %s is not executable", domain.ErrNoExecutableFound, path)
}

// IsExecutable reports whether info describes a regular file that is either
// marked executable or carries an .exe extension.
func IsExecutable(info fs.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if strings.EqualFold(filepath.Ext(info.Name()), ".exe") {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
