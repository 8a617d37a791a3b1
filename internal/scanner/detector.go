package scanner

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for package detection
var (
	gzipMagic  = []byte{0x1F, 0x8B}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	zipMagic   = []byte("PK\x03\x04")
)

// DetectPackageType determines the package type based on file extension,
// confirmed by magic bytes
func DetectPackageType(path string) (PackageType, error) {
	pkgType := typeFromName(path)
	if pkgType == TypeUnknown {
		return TypeUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return TypeUnknown, err
	}
	header = header[:n]

	var magic []byte
	switch pkgType {
	case TypeSdistGzip:
		magic = gzipMagic
	case TypeSdistBzip2:
		magic = bzip2Magic
	case TypeSdistXz:
		magic = xzMagic
	default:
		magic = zipMagic
	}

	if !bytes.HasPrefix(header, magic) {
		return TypeUnknown, nil
	}
	return pkgType, nil
}

// typeFromName maps a distribution file name to its type
func typeFromName(path string) PackageType {
	basename := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(basename, ".tar.gz"), strings.HasSuffix(basename, ".tgz"):
		return TypeSdistGzip
	case strings.HasSuffix(basename, ".tar.bz2"):
		return TypeSdistBzip2
	case strings.HasSuffix(basename, ".tar.xz"):
		return TypeSdistXz
	case strings.HasSuffix(basename, ".whl"):
		return TypeWheel
	case strings.HasSuffix(basename, ".egg"):
		return TypeEgg
	case strings.HasSuffix(basename, ".zip"):
		return TypeSdistZip
	}
	return TypeUnknown
}
