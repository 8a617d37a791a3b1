// Package network resolves repository names to repositories, reading their
// definitions from the attribute store.
package network

import (
	"fmt"
	"strings"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/repos"
	"github.com/ralt/pyrene/internal/store"
)

// SectionPrefix namespaces repository sections in the store file
const SectionPrefix = "repo:"

// Separator splits a repository name from a package spec on the command
// line, so it can not be part of a name
const Separator = ":"

// Network is the registry of defined repositories
type Network struct {
	store *store.Store
	opts  repos.Options
}

// New opens the registry backed by the store file at path
func New(path string, opts repos.Options) (*Network, error) {
	s, err := store.Open(path, SectionPrefix)
	if err != nil {
		return nil, err
	}
	return &Network{store: s, opts: opts}, nil
}

// Path returns the store file
func (n *Network) Path() string {
	return n.store.Path()
}

// Reload picks up changes made to the store file by other processes
func (n *Network) Reload() error {
	return n.store.Reload()
}

// GetRepo builds the repository defined as name. Only an undefined name is
// an error; a definition without a usable type yields a *repos.BadRepo.
func (n *Network) GetRepo(name string) (repos.Repository, error) {
	attributes, err := n.store.Attributes(name)
	if err != nil {
		return nil, err
	}
	return repos.New(name, attributes, n.opts), nil
}

// DirectoryRepo builds an unpersisted directory repository over path
func (n *Network) DirectoryRepo(path string) repos.Repository {
	return repos.NewDirectory(path, n.opts)
}

// Define adds an empty definition for name
func (n *Network) Define(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return n.store.Define(name)
}

func validateName(name string) error {
	switch {
	case name == "":
		return models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("empty repository name"))
	case strings.Contains(name, Separator):
		return models.NewError(models.ErrInvalidCommand, name, fmt.Errorf("repository names can not contain %q", Separator))
	case strings.ContainsAny(name, "[] \t"):
		return models.NewError(models.ErrInvalidCommand, name, fmt.Errorf("repository names can not contain brackets or blanks"))
	}
	return nil
}

func (n *Network) Forget(name string) error {
	return n.store.Forget(name)
}

func (n *Network) Set(name, key, value string) error {
	return n.store.Set(name, key, value)
}

func (n *Network) Unset(name, key string) error {
	return n.store.Unset(name, key)
}

// RepoNames returns the defined names, sorted
func (n *Network) RepoNames() []string {
	return n.store.Names()
}

func (n *Network) GetAttributes(name string) (map[string]string, error) {
	return n.store.Attributes(name)
}

// RepoTypes returns the values accepted for the type attribute
func RepoTypes() []string {
	return repos.Types()
}

// RepoAttributes returns every attribute key some repository type recognises
func RepoAttributes() []string {
	return repos.KnownAttributes()
}
