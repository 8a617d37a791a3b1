package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/ralt/pyrene/internal/models"
	"github.com/sirupsen/logrus"
)

// BadRepo stands in for a repository whose type is missing or unknown.
// It never touches packages; it only reports what it would have done.
type BadRepo struct {
	base
}

// Type implements Repository
func (r *BadRepo) Type() string {
	return ""
}

func (r *BadRepo) problem() error {
	repoType, ok := r.attributes.Get(AttrType)
	if !ok {
		return fmt.Errorf("type is not set, use one of %s", strings.Join(Types(), ", "))
	}
	return fmt.Errorf("unknown type %q, use one of %s", repoType, strings.Join(Types(), ", "))
}

// PipConf implements Repository; there is nothing to point pip at
func (r *BadRepo) PipConf() (string, error) {
	return "", models.NewError(models.ErrUnknownRepoType, r.name, r.problem())
}

// DownloadPackages implements Repository
func (r *BadRepo) DownloadPackages(_ context.Context, spec string, dir string) error {
	logrus.Warnf("%s is misconfigured (%v)", r.name, r.problem())
	fmt.Fprintf(r.opts.Out, "Would download %s from %s into %s\n", spec, r.name, dir)
	return nil
}

// UploadPackages implements Repository
func (r *BadRepo) UploadPackages(_ context.Context, files []string) error {
	logrus.Warnf("%s is misconfigured (%v)", r.name, r.problem())
	for _, file := range files {
		fmt.Fprintf(r.opts.Out, "Would upload %s to %s\n", file, r.name)
	}
	return nil
}

// Serve implements Repository
func (r *BadRepo) Serve(context.Context) error {
	fmt.Fprintf(r.opts.Out, "Nothing is served for %s: %v\n", r.name, r.problem())
	return nil
}
