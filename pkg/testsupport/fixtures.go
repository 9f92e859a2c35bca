package testsupport

import (
	"os"
	"path/filepath"
)

// LoadFixture reads a fixture file, cleaning the path first so callers can
// join testdata segments freely.
func LoadFixture(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}
