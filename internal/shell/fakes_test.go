package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/repos"
)

type download struct {
	spec string
	dir  string
}

// fakeRepo records calls. A download writes the files listed for its spec
// into the target directory.
type fakeRepo struct {
	name        string
	attributes  repos.Attributes
	produces    map[string][]string
	downloadErr error
	uploadErr   error

	downloads []download
	uploads   [][]string
	served    int
}

func newFakeRepo(name string) *fakeRepo {
	return &fakeRepo{name: name, attributes: repos.Attributes{}, produces: map[string][]string{}}
}

func (r *fakeRepo) Name() string { return r.name }
func (r *fakeRepo) Type() string { return "fake" }
func (r *fakeRepo) Attributes() repos.Attributes { return r.attributes }
func (r *fakeRepo) PrintAttributes(w io.Writer) { fmt.Fprintf(w, "%s:\n", r.name) }
func (r *fakeRepo) PipConf() (string, error) { return "[global]\nindex-url = fake://" + r.name + "\n", nil }
func (r *fakeRepo) Serve(ctx context.Context) error {
	r.served++
	return ctx.Err()
}

func (r *fakeRepo) DownloadPackages(_ context.Context, spec string, dir string) error {
	r.downloads = append(r.downloads, download{spec: spec, dir: dir})
	for _, name := range r.produces[spec] {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			return err
		}
	}
	return r.downloadErr
}

func (r *fakeRepo) UploadPackages(_ context.Context, files []string) error {
	r.uploads = append(r.uploads, append([]string(nil), files...))
	return r.uploadErr
}

type fakeNetwork struct {
	repos   map[string]*fakeRepo
	dirs    map[string]*fakeRepo
	reloads int
}

func newFakeNetwork(names ...string) *fakeNetwork {
	n := &fakeNetwork{repos: map[string]*fakeRepo{}, dirs: map[string]*fakeRepo{}}
	for _, name := range names {
		n.repos[name] = newFakeRepo(name)
	}
	return n
}

func (n *fakeNetwork) Reload() error {
	n.reloads++
	return nil
}

func (n *fakeNetwork) GetRepo(name string) (repos.Repository, error) {
	repo, ok := n.repos[name]
	if !ok {
		return nil, models.NewError(models.ErrUnknownRepo, name, nil)
	}
	return repo, nil
}

func (n *fakeNetwork) DirectoryRepo(path string) repos.Repository {
	repo := newFakeRepo(path)
	n.dirs[path] = repo
	return repo
}

func (n *fakeNetwork) Define(string) error { return nil }
func (n *fakeNetwork) Forget(string) error { return nil }
func (n *fakeNetwork) Set(string, string, string) error { return nil }
func (n *fakeNetwork) Unset(string, string) error { return nil }

func (n *fakeNetwork) RepoNames() []string {
	names := make([]string, 0, len(n.repos))
	for name := range n.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *fakeNetwork) GetAttributes(name string) (map[string]string, error) {
	repo, ok := n.repos[name]
	if !ok {
		return nil, models.NewError(models.ErrUnknownRepo, name, nil)
	}
	return repo.attributes, nil
}
