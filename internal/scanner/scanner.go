package scanner

import "context"

// PackageType represents the format of a distribution file
type PackageType int

const (
	TypeUnknown PackageType = iota
	TypeSdistGzip
	TypeSdistBzip2
	TypeSdistXz
	TypeSdistZip
	TypeWheel
	TypeEgg
)

// String returns the string representation of PackageType
func (pt PackageType) String() string {
	switch pt {
	case TypeSdistGzip:
		return "sdist-gz"
	case TypeSdistBzip2:
		return "sdist-bz2"
	case TypeSdistXz:
		return "sdist-xz"
	case TypeSdistZip:
		return "sdist-zip"
	case TypeWheel:
		return "wheel"
	case TypeEgg:
		return "egg"
	default:
		return "unknown"
	}
}

// IsTarball reports whether the format is a compressed tar archive
func (pt PackageType) IsTarball() bool {
	return pt == TypeSdistGzip || pt == TypeSdistBzip2 || pt == TypeSdistXz
}

// ScannedPackage represents a package file found during scanning
type ScannedPackage struct {
	Path string
	Type PackageType
	Size int64
}

// Scanner interface for detecting and scanning packages
type Scanner interface {
	// Scan recursively scans a directory for packages
	Scan(ctx context.Context, dir string) ([]ScannedPackage, error)

	// DetectType determines the package type of a file
	DetectType(path string) (PackageType, error)
}
