// Package staging holds packages in transit between a source repository's
// download and a destination repository's upload.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

// Directory is a flat directory of staged package files
type Directory struct {
	path string
}

// New wraps an existing directory
func New(path string) *Directory {
	return &Directory{path: filepath.Clean(path)}
}

// Create makes a fresh temporary staging directory. The caller owns it and
// must call Remove.
func Create() (*Directory, error) {
	path, err := os.MkdirTemp("", "pyrene-*.staging")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	logrus.Debugf("Staging directory: %s", path)
	return New(path), nil
}

// Path returns the directory's path
func (d *Directory) Path() string {
	return d.path
}

// Files returns the regular files directly inside the directory, sorted by
// full path. Subdirectories are neither listed nor descended into.
func (d *Directory) Files() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(d.path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Clear deletes every file Files returns
func (d *Directory) Clear() error {
	files, err := d.Files()
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the directory and everything in it
func (d *Directory) Remove() error {
	return os.RemoveAll(d.path)
}
