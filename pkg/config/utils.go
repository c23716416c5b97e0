package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindEnvFile resolves name to an existing file. An absolute name is
// checked as is. A relative name is looked up in the working directory and
// then in each parent, stopping after the first directory that holds a
// go.mod so a test binary finds the repository's .env but nothing above it.
func FindEnvFile(name string) (string, error) {
	if name == "" {
		name = ".env"
	}
	if filepath.IsAbs(name) {
		if !isFile(name) {
			return "", fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		return name, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if candidate := filepath.Join(dir, name); isFile(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if isFile(filepath.Join(dir, "go.mod")) || parent == dir {
			return "", fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		dir = parent
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
