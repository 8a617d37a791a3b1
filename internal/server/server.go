// Package server serves a directory of Python distributions as a PEP 503
// simple index, with optional authenticated uploads through the legacy
// upload API.
package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ralt/pyrene/internal/scanner"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
)

// MaxRequestBodySize bounds uploads
const MaxRequestBodySize = 512 * 1024 * 1024

const shutdownTimeout = 5 * time.Second

// Config configures one index server
type Config struct {
	// Dir holds the packages, searched recursively
	Dir string
	// Addr is host:port to listen on
	Addr string
	// Username and Password protect uploads. Without a username the index
	// is read-only.
	Username string
	Password string
	// Overwrite allows re-uploading an existing file name
	Overwrite bool
}

// Server is a package index over a directory
type Server struct {
	cfg          Config
	passwordHash []byte
	scanner      scanner.Scanner
}

// New prepares a server. The password is kept only as a bcrypt hash.
func New(cfg Config) (*Server, error) {
	if cfg.Dir == "" {
		return nil, errors.New("no directory to serve")
	}
	s := &Server{cfg: cfg, scanner: scanner.NewFileSystemScanner()}

	if cfg.Username != "" {
		if cfg.Password == "" {
			return nil, fmt.Errorf("no password for upload user %s", cfg.Username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		s.passwordHash = hash
	}
	return s, nil
}

// ReadOnly reports whether uploads are refused
func (s *Server) ReadOnly() bool {
	return s.passwordHash == nil
}

// ListenAndServe listens on the configured address and serves until ctx is
// done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. It
// returns nil after a cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "pyrene",
		MaxRequestBodySize: MaxRequestBodySize,
		ReadTimeout:        time.Second * 60,
		WriteTimeout:       time.Second * 60,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down index server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	<-errc
	return nil
}

// GeneratePassword returns a random URL-safe password
func GeneratePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
