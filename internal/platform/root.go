package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigFileName is the configuration file looked up by FindConfig.
const ConfigFileName = "hearth.yaml"

// ErrConfigNotFound is returned by FindConfig when no file is found.
var ErrConfigNotFound = errors.New("config file not found")

// FindConfig looks upwards from startDir for a hearth.yaml file and returns
// its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", ErrConfigNotFound
}
