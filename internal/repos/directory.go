package repos

import (
	"context"
	"fmt"
	"net"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/server"
	"github.com/ralt/pyrene/internal/signer"
	"github.com/ralt/pyrene/internal/utils"
	"github.com/sirupsen/logrus"
)

const pipConfDirectory = `[global]
no-index = true
find-links = %s
`

// DirectoryRepo keeps packages as flat files in a local directory
type DirectoryRepo struct {
	base
}

// Type implements Repository
func (r *DirectoryRepo) Type() string {
	return TypeDirectory
}

// Directory returns the directory attribute as configured
func (r *DirectoryRepo) Directory() (string, error) {
	return r.require(AttrDirectory)
}

// path resolves the directory attribute to an absolute path, creating the
// directory when create is set
func (r *DirectoryRepo) path(create bool) (string, error) {
	dir, err := r.Directory()
	if err != nil {
		return "", err
	}
	abs, err := utils.AbsPath(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory of %s: %w", r.name, err)
	}
	if create {
		if err := utils.EnsureDir(abs); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", abs, err)
		}
	}
	return abs, nil
}

// PipConf implements Repository
func (r *DirectoryRepo) PipConf() (string, error) {
	dir, err := r.path(false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(pipConfDirectory, dir), nil
}

// DownloadPackages implements Repository. The directory is created first so
// an empty repository yields no packages instead of an error about the path.
func (r *DirectoryRepo) DownloadPackages(ctx context.Context, spec string, dir string) error {
	source, err := r.path(true)
	if err != nil {
		return err
	}
	return r.pipDownload(ctx, spec, dir, "--find-links", source, "--no-index")
}

// UploadPackages implements Repository by copying each file into the
// directory, overwriting same-named files
func (r *DirectoryRepo) UploadPackages(ctx context.Context, files []string) error {
	dir, err := r.path(true)
	if err != nil {
		return err
	}
	s, err := r.loadSigner()
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		dst := filepath.Join(dir, filepath.Base(file))
		if err := r.copyPackage(s, file, dst); err != nil {
			logrus.Errorf("Failed to upload %s to %s: %v", file, r.name, err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", filepath.Base(file), err))
			continue
		}
		logrus.Infof("Uploaded %s to %s", filepath.Base(file), r.name)
	}

	if err := result.ErrorOrNil(); err != nil {
		return models.NewError(models.ErrUpload, r.name, err)
	}
	return nil
}

func (r *DirectoryRepo) copyPackage(s signer.Signer, src, dst string) error {
	if err := utils.CopyFile(src, dst); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	return signer.SignFile(s, dst, dst+".asc")
}

// Serve implements Repository by running a package index over the directory
// until ctx is done
func (r *DirectoryRepo) Serve(ctx context.Context) error {
	dir, err := r.path(true)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Dir:       dir,
		Addr:      net.JoinHostPort(r.attributes.GetDefault(AttrInterface, DefaultInterface), r.attributes.GetDefault(AttrPort, DefaultPort)),
		Username:  r.attributes[AttrServeUsername],
		Password:  r.attributes[AttrServePassword],
		Overwrite: r.attributes.Bool(AttrVolatile),
	}

	if cfg.Username != "" && cfg.Password == "" {
		cfg.Password, err = server.GeneratePassword()
		if err != nil {
			return models.NewError(models.ErrServe, r.name, err)
		}
		fmt.Fprintf(r.opts.Out, "Upload password for %s: %s\n", cfg.Username, cfg.Password)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return models.NewError(models.ErrServe, r.name, err)
	}

	fmt.Fprintf(r.opts.Out, "Serving %s from %s on http://%s/simple/ (interrupt to stop)\n", r.name, dir, cfg.Addr)
	if err := srv.ListenAndServe(ctx); err != nil {
		return models.NewError(models.ErrServe, r.name, err)
	}
	return nil
}
