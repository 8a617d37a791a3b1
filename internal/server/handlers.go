package server

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/pkginfo"
	"github.com/ralt/pyrene/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
)

const (
	simplePrefix   = "/simple/"
	packagesPrefix = "/packages/"
)

// Handler returns the request router
func (s *Server) Handler() fasthttp.RequestHandler {
	return loggingMiddleware(func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())

		switch {
		case ctx.IsPost() && path == "/":
			s.requireAuth(s.upload)(ctx)
		case !ctx.IsGet() && !ctx.IsHead():
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		case path == "/" || path == "/simple":
			ctx.Redirect(simplePrefix, fasthttp.StatusMovedPermanently)
		case path == simplePrefix:
			s.projectList(ctx)
		case strings.HasPrefix(path, simplePrefix):
			s.projectPage(ctx, strings.TrimPrefix(path, simplePrefix))
		case strings.HasPrefix(path, packagesPrefix):
			s.packageFile(ctx, strings.TrimPrefix(path, packagesPrefix))
		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	})
}

// packages scans the directory and groups the distributions by normalized
// project name
func (s *Server) packages(ctx *fasthttp.RequestCtx) (map[string][]models.Package, error) {
	scanned, err := s.scanner.Scan(ctx, s.cfg.Dir)
	if err != nil {
		return nil, err
	}

	projects := make(map[string][]models.Package)
	for _, sp := range scanned {
		pkg, err := pkginfo.ParsePackage(sp.Path)
		if err != nil {
			logrus.Warnf("Skipping %s: %v", sp.Path, err)
			continue
		}
		name := utils.NormalizeName(pkg.Name)
		projects[name] = append(projects[name], *pkg)
	}
	return projects, nil
}

func (s *Server) projectList(ctx *fasthttp.RequestCtx) {
	projects, err := s.packages(ctx)
	if err != nil {
		logrus.Errorf("Failed to scan %s: %v", s.cfg.Dir, err)
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n  <head><title>Simple index</title></head>\n  <body>\n")
	for _, name := range names {
		fmt.Fprintf(&page, "    <a href=\"%s/\">%s</a><br/>\n", html.EscapeString(name), html.EscapeString(name))
	}
	page.WriteString("  </body>\n</html>\n")

	sendHTML(ctx, page.String())
}

func (s *Server) projectPage(ctx *fasthttp.RequestCtx, project string) {
	name := strings.TrimSuffix(project, "/")
	if name == "" || strings.Contains(name, "/") {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	if normalized := utils.NormalizeName(name); normalized != name || !strings.HasSuffix(project, "/") {
		ctx.Redirect(simplePrefix+normalized+"/", fasthttp.StatusMovedPermanently)
		return
	}

	projects, err := s.packages(ctx)
	if err != nil {
		logrus.Errorf("Failed to scan %s: %v", s.cfg.Dir, err)
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}
	files, ok := projects[name]
	if !ok {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })

	var page strings.Builder
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n  <head><title>Links for %s</title></head>\n  <body>\n", html.EscapeString(name))
	fmt.Fprintf(&page, "    <h1>Links for %s</h1>\n", html.EscapeString(name))
	for _, pkg := range files {
		rel, err := filepath.Rel(s.cfg.Dir, pkg.Filename)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		sig := ""
		if pkg.Signature != "" {
			sig = ` data-gpg-sig="true"`
		}
		fmt.Fprintf(&page, "    <a href=\"%s%s#sha256=%s\"%s>%s</a><br/>\n",
			packagesPrefix, html.EscapeString(rel), pkg.SHA256Sum, sig, html.EscapeString(filepath.Base(rel)))
	}
	page.WriteString("  </body>\n</html>\n")

	sendHTML(ctx, page.String())
}

func (s *Server) packageFile(ctx *fasthttp.RequestCtx, rel string) {
	full, ok := s.resolve(rel)
	if !ok {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	fasthttp.ServeFile(ctx, full)
}

// resolve maps a request path below /packages/ to a file inside the served
// directory, refusing anything that escapes it or is not a distribution or
// signature
func (s *Server) resolve(rel string) (string, bool) {
	if rel == "" || strings.Contains(rel, "\\") {
		return "", false
	}
	clean := filepath.Clean("/" + rel)
	for _, part := range strings.Split(clean, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	if _, ok := utils.TrimDistSuffix(strings.TrimSuffix(clean, ".asc")); !ok {
		return "", false
	}
	return filepath.Join(s.cfg.Dir, filepath.FromSlash(clean)), true
}

// upload implements the legacy upload API used by twine and setuptools
func (s *Server) upload(ctx *fasthttp.RequestCtx) {
	if action := string(ctx.FormValue(":action")); action != "file_upload" {
		ctx.Error(fmt.Sprintf("Unsupported action %q", action), fasthttp.StatusBadRequest)
		return
	}

	fh, err := ctx.FormFile("content")
	if err != nil {
		ctx.Error("No file uploaded", fasthttp.StatusBadRequest)
		return
	}

	filename := filepath.Base(fh.Filename)
	if _, ok := utils.TrimDistSuffix(filename); !ok || strings.HasPrefix(filename, ".") {
		ctx.Error(fmt.Sprintf("Not a distribution file: %s", filename), fasthttp.StatusBadRequest)
		return
	}

	dst := filepath.Join(s.cfg.Dir, filename)
	if _, err := os.Stat(dst); err == nil && !s.cfg.Overwrite {
		ctx.Error(fmt.Sprintf("File %s already exists", filename), fasthttp.StatusConflict)
		return
	}

	tmp := filepath.Join(s.cfg.Dir, ".upload-"+filename)
	if err := fasthttp.SaveMultipartFile(fh, tmp); err != nil {
		logrus.Errorf("Failed to save upload %s: %v", filename, err)
		ctx.Error("Failed to store file", fasthttp.StatusInternalServerError)
		return
	}
	defer os.Remove(tmp)

	if msg := verifyDigests(ctx, tmp); msg != "" {
		ctx.Error(msg, fasthttp.StatusBadRequest)
		return
	}

	if err := os.Rename(tmp, dst); err != nil {
		logrus.Errorf("Failed to store upload %s: %v", filename, err)
		ctx.Error("Failed to store file", fasthttp.StatusInternalServerError)
		return
	}

	if sig, err := ctx.FormFile("gpg_signature"); err == nil {
		if err := fasthttp.SaveMultipartFile(sig, dst+".asc"); err != nil {
			logrus.Warnf("Failed to store signature of %s: %v", filename, err)
		}
	}

	logrus.Infof("Stored %s", filename)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("OK\n")
}

// verifyDigests checks the optional digests sent with an upload and returns
// an error message on mismatch
func verifyDigests(ctx *fasthttp.RequestCtx, path string) string {
	md5Digest := strings.ToLower(string(ctx.FormValue("md5_digest")))
	sha256Digest := strings.ToLower(string(ctx.FormValue("sha256_digest")))
	if md5Digest == "" && sha256Digest == "" {
		return ""
	}

	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return "Failed to read upload"
	}
	if md5Digest != "" && md5Digest != checksums.MD5 {
		return "md5_digest does not match"
	}
	if sha256Digest != "" && sha256Digest != checksums.SHA256 {
		return "sha256_digest does not match"
	}
	return ""
}

// requireAuth guards next with HTTP basic auth against the configured user
func (s *Server) requireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if s.ReadOnly() {
			ctx.Error("Uploads are disabled", fasthttp.StatusForbidden)
			return
		}

		username, password, ok := basicAuth(ctx)
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) != 1 ||
			bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
			ctx.Response.Header.Set("WWW-Authenticate", `Basic realm="pyrene"`)
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		next(ctx)
	}
}

func basicAuth(ctx *fasthttp.RequestCtx) (username, password string, ok bool) {
	header := string(ctx.Request.Header.Peek("Authorization"))
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(decoded), ":")
	return username, password, ok
}

func sendHTML(ctx *fasthttp.RequestCtx, body string) {
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(body)
}

func loggingMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		next(ctx)

		logrus.Debugf("%s %s - %d - %v",
			ctx.Method(),
			ctx.Path(),
			ctx.Response.StatusCode(),
			time.Since(start),
		)
	}
}
