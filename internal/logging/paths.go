package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogPath returns ~/.corelens/logs/corelens.log, falling back to
// a relative path if the home directory can't be resolved.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".corelens", "logs", "corelens.log")
	}
	return filepath.Join(home, ".corelens", "logs", "corelens.log")
}

// EnsureLogDir creates the parent directory of path if needed.
func EnsureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
