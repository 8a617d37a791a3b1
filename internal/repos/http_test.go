package repos

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpRepo(opts Options, extra map[string]string) Repository {
	attributes := map[string]string{
		AttrType:        TypeHTTP,
		AttrDownloadURL: "https://pypi.example.com/simple/",
		AttrUploadURL:   "https://pypi.example.com/legacy/",
	}
	for k, v := range extra {
		attributes[k] = v
	}
	return New("remote", attributes, opts)
}

func TestHTTPPipConf(t *testing.T) {
	opts, _, _ := testOptions()

	conf, err := httpRepo(opts, nil).PipConf()
	require.NoError(t, err)
	assert.Equal(t, "[global]\nindex-url = https://pypi.example.com/simple/\nextra-index-url =\n", conf)

	_, err = New("remote", map[string]string{AttrType: TypeHTTP}, opts).PipConf()
	assert.True(t, models.IsErrorType(err, models.ErrMissingAttribute))
	assert.ErrorContains(t, err, AttrDownloadURL)
}

func TestHTTPDownload(t *testing.T) {
	opts, rec, _ := testOptions()

	require.NoError(t, httpRepo(opts, nil).DownloadPackages(context.Background(), "roman", "/stage"))
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, []string{"download", "--dest", "/stage", "--index-url", "https://pypi.example.com/simple/", "roman"}, rec.Commands[0].Args)
	assert.Equal(t, os.DevNull, rec.Commands[0].Env["PIP_CONFIG_FILE"])
}

func TestHTTPUpload(t *testing.T) {
	opts, rec, _ := testOptions()
	repo := httpRepo(opts, map[string]string{AttrUsername: "alice", AttrPassword: "secret"})

	files := []string{"/stage/a-1.0.zip", "/stage/b-1.0.zip"}
	require.NoError(t, repo.UploadPackages(context.Background(), files))

	require.Len(t, rec.Commands, 2)
	for i, cmd := range rec.Commands {
		assert.Equal(t, "twine", cmd.Name)
		assert.Equal(t, []string{"upload", "--non-interactive", "--repository-url", "https://pypi.example.com/legacy/", files[i]}, cmd.Args)
		assert.Equal(t, map[string]string{"TWINE_USERNAME": "alice", "TWINE_PASSWORD": "secret"}, cmd.Env)
	}
}

func TestHTTPUploadWithoutCredentials(t *testing.T) {
	opts, rec, _ := testOptions()
	require.NoError(t, httpRepo(opts, nil).UploadPackages(context.Background(), []string{"/stage/a-1.0.zip"}))
	require.Len(t, rec.Commands, 1)
	assert.Empty(t, rec.Commands[0].Env)
}

func TestHTTPUploadPartialFailure(t *testing.T) {
	opts, rec, _ := testOptions()
	rec.Hook = func(cmd runner.Command) error {
		if strings.HasSuffix(cmd.Args[len(cmd.Args)-1], "bad-1.0.zip") {
			return errors.New("exit status 1")
		}
		return nil
	}

	err := httpRepo(opts, nil).UploadPackages(context.Background(),
		[]string{"/stage/bad-1.0.zip", "/stage/good-1.0.zip"})
	assert.True(t, models.IsErrorType(err, models.ErrUpload))
	assert.ErrorContains(t, err, "bad-1.0.zip")
	assert.NotContains(t, err.Error(), "good-1.0.zip")
	assert.Len(t, rec.Commands, 2)
}

func TestHTTPUploadMissingURL(t *testing.T) {
	opts, rec, _ := testOptions()
	repo := New("remote", map[string]string{AttrType: TypeHTTP, AttrDownloadURL: "https://x/simple/"}, opts)

	err := repo.UploadPackages(context.Background(), []string{"/stage/a-1.0.zip"})
	assert.True(t, models.IsErrorType(err, models.ErrMissingAttribute))
	assert.Empty(t, rec.Commands)
}

func TestHTTPUploadSigned(t *testing.T) {
	opts, rec, _ := testOptions()
	keyPath, _ := writeSigningKey(t)

	file := filepath.Join(t.TempDir(), "roman-2.0.0.zip")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0644))

	var sigSeen bool
	rec.Hook = func(cmd runner.Command) error {
		sig := cmd.Args[len(cmd.Args)-1]
		assert.Equal(t, "roman-2.0.0.zip.asc", filepath.Base(sig))
		data, err := os.ReadFile(sig)
		sigSeen = err == nil && bytes.Contains(data, []byte("BEGIN PGP SIGNATURE"))
		return nil
	}

	repo := httpRepo(opts, map[string]string{AttrSigningKey: keyPath})
	require.NoError(t, repo.UploadPackages(context.Background(), []string{file}))
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, file, rec.Commands[0].Args[4])
	assert.True(t, sigSeen)

	// signatures live only for the duration of the upload
	_, err := os.Stat(rec.Commands[0].Args[5])
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPServe(t *testing.T) {
	opts, rec, out := testOptions()

	require.NoError(t, httpRepo(opts, nil).Serve(context.Background()))
	require.NoError(t, New("bare", map[string]string{AttrType: TypeHTTP}, opts).Serve(context.Background()))

	assert.Equal(t, "remote is served remotely at https://pypi.example.com/simple/\n"+
		"bare is served remotely at UNSPECIFIED\n", out.String())
	assert.Empty(t, rec.Commands)
}
