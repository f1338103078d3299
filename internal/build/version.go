package build

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// AppVersion is the release version of agata.
const AppVersion = "0.1.0"

var (
	// Commit is stamped at link time with
	// -ldflags "-X github.com/roasbeef/agata/internal/build.Commit=...".
	Commit string

	// RawTags holds the comma separated build tags, stamped like Commit.
	RawTags string
)

// Version returns the application version, with the commit appended when
// known.
func Version() string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	if commit == "" {
		return AppVersion
	}

	if len(commit) > 12 {
		commit = commit[:12]
	}

	return AppVersion + "-" + commit
}

// GoVersion is the Go release the binary was built with.
func GoVersion() string {
	return runtime.Version()
}

// Tags returns the build tags stamped into RawTags.
func Tags() []string {
	if RawTags == "" {
		return nil
	}

	return strings.Split(RawTags, ",")
}

// vcsRevision reads the revision the toolchain embedded, if any.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}

	return ""
}
