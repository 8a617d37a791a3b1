package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/pyrene/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type testServer struct {
	dir    string
	client *fasthttp.Client
}

func startServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	srv, err := New(cfg)
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return &testServer{
		dir: cfg.Dir,
		client: &fasthttp.Client{
			Dial: func(addr string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func (ts *testServer) do(t *testing.T, req *fasthttp.Request) *fasthttp.Response {
	t.Helper()
	resp := &fasthttp.Response{}
	require.NoError(t, ts.client.Do(req, resp))
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *fasthttp.Response {
	t.Helper()
	req := &fasthttp.Request{}
	req.SetRequestURI("http://pyrene" + path)
	return ts.do(t, req)
}

type upload struct {
	filename  string
	content   []byte
	action    string
	signature []byte
	fields    map[string]string
	username  string
	password  string
}

func (ts *testServer) upload(t *testing.T, u upload) *fasthttp.Response {
	t.Helper()
	if u.action == "" {
		u.action = "file_upload"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(":action", u.action))
	for k, v := range u.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("content", u.filename)
	require.NoError(t, err)
	_, err = fw.Write(u.content)
	require.NoError(t, err)
	if u.signature != nil {
		fw, err := mw.CreateFormFile("gpg_signature", u.filename+".asc")
		require.NoError(t, err)
		_, err = fw.Write(u.signature)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := &fasthttp.Request{}
	req.SetRequestURI("http://pyrene/")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(mw.FormDataContentType())
	if u.username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(u.username + ":" + u.password))
		req.Header.Set("Authorization", "Basic "+token)
	}
	req.SetBody(body.Bytes())
	return ts.do(t, req)
}

// writeWheel writes a wheel whose METADATA names the project
func writeWheel(t *testing.T, dir, filename, name, version string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(fmt.Sprintf("%s-%s.dist-info/METADATA", name, version))
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, "Metadata-Version: 2.1\nName: %s\nVersion: %s\n\nLong description\n", name, version)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return path
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir(), Username: "user"})
	assert.Error(t, err)

	srv, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, srv.ReadOnly())

	srv, err = New(Config{Dir: t.TempDir(), Username: "user", Password: "secret"})
	require.NoError(t, err)
	assert.False(t, srv.ReadOnly())
}

func TestIndexPages(t *testing.T) {
	ts := startServer(t, Config{})
	wheel := writeWheel(t, ts.dir, "Demo_Pkg-1.0-py3-none-any.whl", "Demo.Pkg", "1.0")
	require.NoError(t, os.WriteFile(wheel+".asc", []byte("signature"), 0644))
	sub := filepath.Join(ts.dir, "old")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeWheel(t, sub, "other-0.1-py3-none-any.whl", "Other", "0.1")
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "notes.txt"), []byte("x"), 0644))

	resp := ts.get(t, "/")
	assert.Equal(t, fasthttp.StatusMovedPermanently, resp.StatusCode())
	assert.Contains(t, string(resp.Header.Peek("Location")), "/simple/")

	resp = ts.get(t, "/simple/")
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	body := string(resp.Body())
	assert.Contains(t, body, `<a href="demo-pkg/">demo-pkg</a>`)
	assert.Contains(t, body, `<a href="other/">other</a>`)
	assert.NotContains(t, body, "notes")

	resp = ts.get(t, "/simple/Demo.Pkg/")
	assert.Equal(t, fasthttp.StatusMovedPermanently, resp.StatusCode())
	assert.Contains(t, string(resp.Header.Peek("Location")), "/simple/demo-pkg/")

	checksums, err := utils.CalculateChecksums(wheel)
	require.NoError(t, err)
	resp = ts.get(t, "/simple/demo-pkg/")
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()),
		fmt.Sprintf(`<a href="/packages/Demo_Pkg-1.0-py3-none-any.whl#sha256=%s" data-gpg-sig="true">`, checksums.SHA256))

	resp = ts.get(t, "/simple/other/")
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `href="/packages/old/other-0.1-py3-none-any.whl#sha256=`)
	assert.NotContains(t, string(resp.Body()), "data-gpg-sig")

	resp = ts.get(t, "/simple/missing/")
	assert.Equal(t, fasthttp.StatusNotFound, resp.StatusCode())
}

func TestPackageFiles(t *testing.T) {
	ts := startServer(t, Config{})
	wheel := writeWheel(t, ts.dir, "demo-1.0-py3-none-any.whl", "demo", "1.0")
	data, err := os.ReadFile(wheel)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, ".hidden.whl"), data, 0644))

	resp := ts.get(t, "/packages/demo-1.0-py3-none-any.whl")
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Equal(t, data, resp.Body())

	for _, path := range []string{
		"/packages/.hidden.whl",
		"/packages/missing-1.0.zip",
		"/packages/old",
		"/packages/..%2f..%2fetc%2fpasswd",
	} {
		resp := ts.get(t, path)
		assert.Equal(t, fasthttp.StatusNotFound, resp.StatusCode(), path)
	}
}

func TestUploadReadOnly(t *testing.T) {
	ts := startServer(t, Config{})

	resp := ts.upload(t, upload{filename: "demo-1.0.tar.gz", content: []byte("sdist")})
	assert.Equal(t, fasthttp.StatusForbidden, resp.StatusCode())
	assert.NoFileExists(t, filepath.Join(ts.dir, "demo-1.0.tar.gz"))
}

func TestUpload(t *testing.T) {
	ts := startServer(t, Config{Username: "user", Password: "secret"})
	stored := filepath.Join(ts.dir, "demo-1.0.tar.gz")

	resp := ts.upload(t, upload{filename: "demo-1.0.tar.gz", content: []byte("sdist")})
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.StatusCode())
	assert.NotEmpty(t, resp.Header.Peek("WWW-Authenticate"))

	resp = ts.upload(t, upload{filename: "demo-1.0.tar.gz", content: []byte("sdist"), username: "user", password: "wrong"})
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.StatusCode())

	resp = ts.upload(t, upload{
		filename:  "demo-1.0.tar.gz",
		content:   []byte("sdist"),
		signature: []byte("sig"),
		username:  "user",
		password:  "secret",
	})
	require.Equal(t, fasthttp.StatusOK, resp.StatusCode(), string(resp.Body()))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "sdist", string(data))
	assert.FileExists(t, stored+".asc")

	resp = ts.upload(t, upload{filename: "demo-1.0.tar.gz", content: []byte("again"), username: "user", password: "secret"})
	assert.Equal(t, fasthttp.StatusConflict, resp.StatusCode())
	data, err = os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "sdist", string(data))
}

func TestUploadOverwrite(t *testing.T) {
	ts := startServer(t, Config{Username: "user", Password: "secret", Overwrite: true})
	stored := filepath.Join(ts.dir, "demo-1.0.tar.gz")

	for _, content := range []string{"first", "second"} {
		resp := ts.upload(t, upload{filename: "demo-1.0.tar.gz", content: []byte(content), username: "user", password: "secret"})
		require.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	}
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestUploadRejects(t *testing.T) {
	ts := startServer(t, Config{Username: "user", Password: "secret"})
	checksums, err := utils.CalculateReaderChecksums(bytes.NewReader([]byte("sdist")))
	require.NoError(t, err)

	tests := []struct {
		name   string
		upload upload
		status int
	}{
		{
			name:   "unsupported action",
			upload: upload{filename: "demo-1.0.tar.gz", action: "submit"},
			status: fasthttp.StatusBadRequest,
		},
		{
			name:   "not a distribution",
			upload: upload{filename: "notes.txt"},
			status: fasthttp.StatusBadRequest,
		},
		{
			name:   "md5 mismatch",
			upload: upload{filename: "demo-1.0.tar.gz", fields: map[string]string{"md5_digest": "00"}},
			status: fasthttp.StatusBadRequest,
		},
		{
			name:   "sha256 mismatch",
			upload: upload{filename: "demo-1.0.tar.gz", fields: map[string]string{"sha256_digest": "00"}},
			status: fasthttp.StatusBadRequest,
		},
		{
			name: "matching digests",
			upload: upload{filename: "demo-1.0.tar.gz", fields: map[string]string{
				"md5_digest":    checksums.MD5,
				"sha256_digest": checksums.SHA256,
			}},
			status: fasthttp.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.upload
			u.content = []byte("sdist")
			u.username = "user"
			u.password = "secret"
			resp := ts.upload(t, u)
			assert.Equal(t, tt.status, resp.StatusCode(), string(resp.Body()))
		})
	}

	entries, err := os.ReadDir(ts.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"demo-1.0.tar.gz"}, names)
}

func TestGeneratePassword(t *testing.T) {
	a, err := GeneratePassword()
	require.NoError(t, err)
	b, err := GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
