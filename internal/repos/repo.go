// Package repos implements the repository variants: directory backed, HTTP
// backed and misconfigured.
package repos

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/runner"
	"github.com/ralt/pyrene/internal/signer"
	"github.com/ralt/pyrene/internal/utils"
)

// Repository is a named source and sink of packages
type Repository interface {
	// Name returns the repository's name
	Name() string

	// Type returns the variant's type key, empty for misconfigured repositories
	Type() string

	// Attributes returns the attributes the repository was built from
	Attributes() Attributes

	// PipConf renders a pip.conf that installs from this repository
	PipConf() (string, error)

	// DownloadPackages fetches the packages matching spec into dir
	DownloadPackages(ctx context.Context, spec string, dir string) error

	// UploadPackages publishes files in order. A failing file does not stop
	// the remaining ones; the returned error lists every failure.
	UploadPackages(ctx context.Context, files []string) error

	// Serve makes the repository available over HTTP until ctx is done
	Serve(ctx context.Context) error

	// PrintAttributes writes known and extra attributes to w
	PrintAttributes(w io.Writer)
}

// Options carries the collaborators shared by all repositories
type Options struct {
	Runner runner.Runner
	// Out receives operator notices
	Out   io.Writer
	Pip   string
	Twine string
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = runner.NewExec()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Pip == "" {
		o.Pip = "pip"
	}
	if o.Twine == "" {
		o.Twine = "twine"
	}
	return o
}

type constructor func(b base) Repository

var constructors = map[string]constructor{
	TypeDirectory: func(b base) Repository { return &DirectoryRepo{base: b} },
	TypeHTTP:      func(b base) Repository { return &HTTPRepo{base: b} },
}

var knownAttributes = map[string][]string{
	TypeDirectory: {
		AttrType, AttrDirectory, AttrVolatile, AttrInterface, AttrPort,
		AttrServeUsername, AttrServePassword, AttrSigningKey, AttrSigningPassphrase,
	},
	TypeHTTP: {
		AttrType, AttrDownloadURL, AttrUploadURL, AttrUsername, AttrPassword,
		AttrSigningKey, AttrSigningPassphrase,
	},
}

// New builds the variant selected by the type attribute. A missing or
// unrecognised type yields a *BadRepo.
func New(name string, attributes map[string]string, opts Options) Repository {
	b := base{
		name:       name,
		attributes: Attributes(attributes),
		opts:       opts.withDefaults(),
	}
	if b.attributes == nil {
		b.attributes = Attributes{}
	}

	repoType := b.attributes[AttrType]
	if ctor, ok := constructors[repoType]; ok {
		b.known = knownAttributes[repoType]
		return ctor(b)
	}
	b.known = []string{AttrType}
	return &BadRepo{base: b}
}

// NewDirectory builds an unpersisted directory repository over path
func NewDirectory(path string, opts Options) *DirectoryRepo {
	return New(path, map[string]string{
		AttrType:      TypeDirectory,
		AttrDirectory: path,
	}, opts).(*DirectoryRepo)
}

// Types returns the known type keys, sorted
func Types() []string {
	types := make([]string, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// KnownAttributes returns every attribute key some variant recognises, sorted
func KnownAttributes() []string {
	seen := map[string]bool{}
	var keys []string
	for _, attrs := range knownAttributes {
		for _, key := range attrs {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// base holds what every variant shares
type base struct {
	name       string
	attributes Attributes
	opts       Options
	known      []string
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Attributes() Attributes {
	return b.attributes
}

// require returns a required attribute or a missing attribute error
func (b *base) require(key string) (string, error) {
	value, ok := b.attributes.Get(key)
	if !ok {
		return "", models.MissingAttribute(b.name, key)
	}
	return value, nil
}

// loadSigner returns nil when no signing key is configured
func (b *base) loadSigner() (signer.Signer, error) {
	keyPath, ok := b.attributes.Get(AttrSigningKey)
	if !ok {
		return nil, nil
	}
	s, err := signer.NewGPGSigner(utils.ExpandUser(keyPath), b.attributes[AttrSigningPassphrase])
	if err != nil {
		return nil, fmt.Errorf("signing key of %s: %w", b.name, err)
	}
	return s, nil
}

// pipDownload runs the installer with the user's pip configuration disabled
func (b *base) pipDownload(ctx context.Context, spec, dir string, source ...string) error {
	args := append([]string{"download", "--dest", dir}, source...)
	args = append(args, spec)

	err := b.opts.Runner.Run(ctx, runner.Command{
		Name: b.opts.Pip,
		Args: args,
		Env:  map[string]string{"PIP_CONFIG_FILE": os.DevNull},
	})
	if err != nil {
		return models.NewError(models.ErrDownload, b.name, err)
	}
	return nil
}
