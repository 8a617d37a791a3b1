package repos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/runner"
	"github.com/ralt/pyrene/internal/signer"
	"github.com/sirupsen/logrus"
)

const pipConfHTTP = `[global]
index-url = %s
extra-index-url =
`

const unspecified = "UNSPECIFIED"

// HTTPRepo is a remote package index
type HTTPRepo struct {
	base
}

// Type implements Repository
func (r *HTTPRepo) Type() string {
	return TypeHTTP
}

// DownloadURL returns the index URL packages are installed from
func (r *HTTPRepo) DownloadURL() (string, error) {
	return r.require(AttrDownloadURL)
}

// PipConf implements Repository
func (r *HTTPRepo) PipConf() (string, error) {
	url, err := r.DownloadURL()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(pipConfHTTP, url), nil
}

// DownloadPackages implements Repository
func (r *HTTPRepo) DownloadPackages(ctx context.Context, spec string, dir string) error {
	url, err := r.DownloadURL()
	if err != nil {
		return err
	}
	return r.pipDownload(ctx, spec, dir, "--index-url", url)
}

// UploadPackages implements Repository by running the publisher once per file
func (r *HTTPRepo) UploadPackages(ctx context.Context, files []string) error {
	url, err := r.require(AttrUploadURL)
	if err != nil {
		return err
	}
	s, err := r.loadSigner()
	if err != nil {
		return err
	}

	env := map[string]string{}
	if username, ok := r.attributes.Get(AttrUsername); ok {
		env["TWINE_USERNAME"] = username
	}
	if password, ok := r.attributes.Get(AttrPassword); ok {
		env["TWINE_PASSWORD"] = password
	}

	sigDir := ""
	if s != nil {
		sigDir, err = os.MkdirTemp("", "pyrene-*.signatures")
		if err != nil {
			return err
		}
		defer os.RemoveAll(sigDir)
	}

	var result *multierror.Error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		args := []string{"upload", "--non-interactive", "--repository-url", url, file}
		if s != nil {
			sigPath := filepath.Join(sigDir, filepath.Base(file)+".asc")
			if err := signer.SignFile(s, file, sigPath); err != nil {
				logrus.Errorf("Failed to sign %s: %v", file, err)
				result = multierror.Append(result, fmt.Errorf("%s: %w", filepath.Base(file), err))
				continue
			}
			args = append(args, sigPath)
		}

		err := r.opts.Runner.Run(ctx, runner.Command{Name: r.opts.Twine, Args: args, Env: env})
		if err != nil {
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

// Serve implements Repository. Remote indexes are already served; this only
// tells where.
func (r *HTTPRepo) Serve(ctx context.Context) error {
	url := r.attributes.GetDefault(AttrDownloadURL, unspecified)
	fmt.Fprintf(r.opts.Out, "%s is served remotely at %s\n", r.name, url)
	return nil
}
