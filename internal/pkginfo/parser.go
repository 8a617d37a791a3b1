// Package pkginfo reads the core metadata of Python distribution files.
package pkginfo

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ralt/pyrene/internal/models"
	"github.com/ralt/pyrene/internal/scanner"
	"github.com/ralt/pyrene/internal/utils"
	"github.com/ulikunitz/xz"
)

// ParsePackage parses a distribution file and extracts its metadata.
// When the archive carries no readable metadata, name and version are
// taken from the file name.
func ParsePackage(filename string) (*models.Package, error) {
	pkgType, err := scanner.DetectPackageType(filename)
	if err != nil {
		return nil, err
	}
	if pkgType == scanner.TypeUnknown {
		return nil, fmt.Errorf("not a python distribution: %s", filepath.Base(filename))
	}

	checksums, err := utils.CalculateChecksums(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}

	pkg := &models.Package{}
	data, err := extractMetadata(filename, pkgType)
	if err == nil {
		pkg, err = parseMetadata(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse metadata of %s: %w", filepath.Base(filename), err)
		}
	}

	if pkg.Name == "" {
		pkg.Name, pkg.Version = utils.SplitFilename(filename)
	}

	pkg.Filename = filename
	pkg.Size = checksums.Size
	pkg.MD5Sum = checksums.MD5
	pkg.SHA256Sum = checksums.SHA256

	if _, err := os.Stat(filename + ".asc"); err == nil {
		pkg.Signature = filename + ".asc"
	}

	return pkg, nil
}

// extractMetadata returns the PKG-INFO or METADATA file of a distribution
func extractMetadata(filename string, pkgType scanner.PackageType) ([]byte, error) {
	if pkgType.IsTarball() {
		return extractFromTarball(filename, pkgType)
	}
	return extractFromZip(filename, pkgType)
}

func extractFromTarball(filename string, pkgType scanner.PackageType) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tarReader *tar.Reader

	switch pkgType {
	case scanner.TypeSdistGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		tarReader = tar.NewReader(gr)
	case scanner.TypeSdistXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, err
		}
		tarReader = tar.NewReader(xr)
	case scanner.TypeSdistBzip2:
		tarReader = tar.NewReader(bzip2.NewReader(f))
	default:
		return nil, fmt.Errorf("unsupported package format: %s", filepath.Base(filename))
	}

	// PKG-INFO sits at the top of the sdist's single root directory
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		name := strings.TrimPrefix(header.Name, "./")
		if path.Base(name) == "PKG-INFO" && strings.Count(name, "/") == 1 {
			return io.ReadAll(tarReader)
		}
	}

	return nil, fmt.Errorf("PKG-INFO not found in package")
}

func extractFromZip(filename string, pkgType scanner.PackageType) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, file := range zr.File {
		if !isMetadataEntry(file.Name, pkgType) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		return data, err
	}

	return nil, fmt.Errorf("metadata not found in package")
}

func isMetadataEntry(name string, pkgType scanner.PackageType) bool {
	dir, base := path.Split(name)
	dir = strings.TrimSuffix(dir, "/")

	switch pkgType {
	case scanner.TypeWheel:
		return base == "METADATA" && strings.HasSuffix(dir, ".dist-info") && !strings.Contains(dir, "/")
	case scanner.TypeEgg:
		return name == "EGG-INFO/PKG-INFO"
	default:
		return base == "PKG-INFO" && dir != "" && !strings.Contains(dir, "/")
	}
}

// parseMetadata parses RFC 822 style core metadata headers.
// Parsing stops at the first blank line, where the description body starts.
func parseMetadata(data []byte) (*models.Package, error) {
	pkg := &models.Package{}

	lines := bufio.NewScanner(bytes.NewReader(data))
	lines.Buffer(make([]byte, 64*1024), 1024*1024)
	for lines.Scan() {
		line := lines.Text()

		if strings.TrimSpace(line) == "" {
			break
		}
		// continuation lines belong to the previous header
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "name":
			pkg.Name = value
		case "version":
			pkg.Version = value
		case "summary":
			pkg.Summary = value
		case "home-page":
			pkg.Homepage = value
		case "license":
			pkg.License = value
		case "requires-dist":
			pkg.Dependencies = append(pkg.Dependencies, value)
		}
	}

	if err := lines.Err(); err != nil {
		return nil, err
	}
	return pkg, nil
}
