package shell

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/network"
	"github.com/ralt/pyrene/internal/repos"
	"github.com/sirupsen/logrus"
)

// Separator splits a repository name from a package spec
const Separator = network.Separator

// copy moves packages into the destination, the last argument. The staging
// directory is cleared whatever the outcome.
func (s *Shell) copy(ctx context.Context, args []string) (err error) {
	destination, err := s.resolveDestination(args[len(args)-1])
	if err != nil {
		return err
	}

	defer func() {
		if clearErr := s.stage.Clear(); clearErr != nil {
			logrus.Errorf("Failed to clear staging directory %s: %v", s.stage.Path(), clearErr)
			if err == nil {
				err = clearErr
			}
		}
	}()

	var (
		current repos.Repository
		local   []string
	)
	for _, token := range args[:len(args)-1] {
		spec := token
		if name, rest, ok := strings.Cut(token, Separator); ok {
			current, err = s.network.GetRepo(name)
			if err != nil {
				return err
			}
			spec = rest
		} else if current == nil {
			files, err := expandLocal(token)
			if err != nil {
				return err
			}
			local = append(local, files...)
			continue
		}

		if spec == "" {
			continue
		}
		logrus.Debugf("Downloading %s from %s", spec, current.Name())
		if err := current.DownloadPackages(ctx, spec, s.stage.Path()); err != nil {
			return err
		}
	}

	staged, err := s.stage.Files()
	if err != nil {
		return fmt.Errorf("failed to list staging directory: %w", err)
	}
	return destination.UploadPackages(ctx, append(local, staged...))
}

// resolveDestination returns the repository named by a REPO: token, or an
// unpersisted directory repository for a plain path
func (s *Shell) resolveDestination(token string) (repos.Repository, error) {
	if name, ok := strings.CutSuffix(token, Separator); ok {
		return s.network.GetRepo(name)
	}
	if strings.Contains(token, Separator) {
		return nil, models.NewError(models.ErrInvalidCommand, "",
			fmt.Errorf("destination %q must be REPO%s or a directory", token, Separator))
	}
	return s.network.DirectoryRepo(token), nil
}

// expandLocal turns a local file argument into absolute paths. Glob patterns
// expand to their sorted matches; a pattern matching nothing is kept as is.
func expandLocal(token string) ([]string, error) {
	paths := []string{token}
	if strings.ContainsAny(token, "*?[{") {
		matches, err := doublestar.FilepathGlob(token, doublestar.WithFilesOnly())
		if err != nil {
			return nil, models.NewError(models.ErrInvalidCommand, "", fmt.Errorf("bad pattern %q: %w", token, err))
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			paths = matches
		}
	}

	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		paths[i] = abs
	}
	return paths, nil
}
