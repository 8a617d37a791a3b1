package signer

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Signer interface for signing uploaded distribution files
type Signer interface {
	// SignDetached creates an armored detached signature of the data read from r
	SignDetached(r io.Reader) ([]byte, error)
}

// SignFile writes an armored detached signature of path to sigPath
func SignFile(s Signer, path, sigPath string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sig, err := s.SignDetached(f)
	if err != nil {
		return err
	}

	if err := os.WriteFile(sigPath, sig, 0644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}

	logrus.Debugf("Signed %s -> %s", path, sigPath)
	return nil
}
