package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// distribution suffixes, longest first
var distSuffixes = []string{
	".tar.bz2", ".tar.gz", ".tar.xz", ".tgz", ".zip", ".whl", ".egg",
}

// NormalizeName returns the PEP 503 normalized form of a project name
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

// TrimDistSuffix strips a known distribution suffix from a file name.
// ok is false when the name has no known suffix.
func TrimDistSuffix(filename string) (string, bool) {
	base := filepath.Base(filename)
	for _, suffix := range distSuffixes {
		if strings.HasSuffix(strings.ToLower(base), suffix) {
			return base[:len(base)-len(suffix)], true
		}
	}
	return base, false
}

// SplitFilename guesses project name and version from a distribution file name.
// Wheels and eggs use "-" only as field separator; sdists are split at the
// first "-" that is followed by a digit.
func SplitFilename(filename string) (name, version string) {
	stem, ok := TrimDistSuffix(filename)
	if !ok {
		return "", ""
	}

	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".whl") || strings.HasSuffix(lower, ".egg") {
		parts := strings.Split(stem, "-")
		if len(parts) < 2 {
			return stem, ""
		}
		return parts[0], parts[1]
	}

	for i := 0; i < len(stem)-1; i++ {
		if stem[i] == '-' && stem[i+1] >= '0' && stem[i+1] <= '9' {
			return stem[:i], stem[i+1:]
		}
	}
	return stem, ""
}
