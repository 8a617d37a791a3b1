package cli

import (
	"runtime/debug"

	"github.com/carlmjohnson/versioninfo"
)

const dirtySuffix = "-dirty"

// determineVersion returns a module version, a VCS revision or "dev", from
// the build information embedded by the Go toolchain
func determineVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok &&
		info.Main.Version != "" && info.Main.Version != "(devel)" {
		return withDirty(info.Main.Version)
	}
	if v := versioninfo.Version; v != "unknown" && v != "(devel)" {
		return withDirty(v)
	}
	if r := versioninfo.Revision; r != "unknown" && r != "" {
		return withDirty(r)
	}
	return "dev"
}

func withDirty(v string) string {
	if versioninfo.DirtyBuild {
		return v + dirtySuffix
	}
	return v
}
