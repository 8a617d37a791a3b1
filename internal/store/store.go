// Package store keeps repository definitions in an INI file, one section per
// repository. Every mutation is written to disk before the call returns.
//
// Two processes writing the same file concurrently may lose updates: there
// is no cross-process locking.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/pyrene/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Store is a named-section key/value store backed by an INI file.
// Section names are the repository name behind a fixed prefix, so the file
// may hold unrelated sections.
type Store struct {
	path   string
	prefix string
	file   *ini.File
}

// Open loads the store at path. A missing file is an empty store; it is
// created on the first mutation.
func Open(path, prefix string) (*Store, error) {
	s := &Store{path: path, prefix: prefix}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file, dropping the in-memory state
func (s *Store) Reload() error {
	file, err := ini.LoadSources(ini.LoadOptions{
		Loose:                   true,
		IgnoreInlineComment:     true,
		IgnoreContinuation:      true,
		PreserveSurroundedQuote: true,
	}, s.path)
	if err != nil {
		return models.NewError(models.ErrStore, "", fmt.Errorf("failed to read %s: %w", s.path, err))
	}
	s.file = file
	return nil
}

func (s *Store) section(name string) (*ini.Section, error) {
	sec, err := s.file.GetSection(s.prefix + name)
	if err != nil {
		return nil, models.NewError(models.ErrUnknownRepo, name, nil)
	}
	return sec, nil
}

// Define creates an empty section for name
func (s *Store) Define(name string) error {
	if s.file.HasSection(s.prefix + name) {
		return models.NewError(models.ErrAlreadyDefined, name, nil)
	}
	if _, err := s.file.NewSection(s.prefix + name); err != nil {
		return models.NewError(models.ErrStore, name, err)
	}
	return s.save()
}

// Forget removes the section for name with all its attributes
func (s *Store) Forget(name string) error {
	if _, err := s.section(name); err != nil {
		return err
	}
	s.file.DeleteSection(s.prefix + name)
	return s.save()
}

// Set stores one attribute, overwriting any previous value
func (s *Store) Set(name, key, value string) error {
	sec, err := s.section(name)
	if err != nil {
		return err
	}
	if key == "" {
		return models.NewError(models.ErrInvalidCommand, name, fmt.Errorf("empty attribute name"))
	}
	sec.Key(key).SetValue(quote(value))
	return s.save()
}

// quote protects values the INI writer would not read back verbatim: outer
// whitespace gets plain double quotes on write, and a leading """ opens a
// multi-line value. Triple quotes are stripped on load.
func quote(value string) string {
	if strings.ContainsAny(value, "\n`") {
		// the writer triple-quotes these itself
		return value
	}
	if strings.TrimSpace(value) != value || strings.HasPrefix(value, `"""`) {
		return `"""` + value + `"""`
	}
	return value
}

// Unset removes one attribute. Removing an attribute that is not set is a no-op.
func (s *Store) Unset(name, key string) error {
	sec, err := s.section(name)
	if err != nil {
		return err
	}
	if !sec.HasKey(key) {
		logrus.Debugf("Attribute %s is not set on %s", key, name)
		return nil
	}
	sec.DeleteKey(key)
	return s.save()
}

// Attributes returns a copy of all attributes of name
func (s *Store) Attributes(name string) (map[string]string, error) {
	sec, err := s.section(name)
	if err != nil {
		return nil, err
	}
	attributes := make(map[string]string, len(sec.Keys()))
	for _, key := range sec.Keys() {
		attributes[key.Name()] = key.Value()
	}
	return attributes, nil
}

// Names returns the defined names in sorted order
func (s *Store) Names() []string {
	var names []string
	for _, section := range s.file.SectionStrings() {
		if strings.HasPrefix(section, s.prefix) {
			names = append(names, strings.TrimPrefix(section, s.prefix))
		}
	}
	sort.Strings(names)
	return names
}

// save writes the whole file to a temporary sibling and renames it over the
// original, so a crash never leaves a half-written store behind
func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.NewError(models.ErrStore, "", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return models.NewError(models.ErrStore, "", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := s.file.WriteTo(tmp); err != nil {
		tmp.Close()
		return models.NewError(models.ErrStore, "", fmt.Errorf("failed to write %s: %w", s.path, err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return models.NewError(models.ErrStore, "", err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewError(models.ErrStore, "", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return models.NewError(models.ErrStore, "", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return models.NewError(models.ErrStore, "", err)
	}
	// what callers read next is what the file holds
	return s.Reload()
}
