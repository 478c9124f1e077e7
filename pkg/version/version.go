// Package version reports the fpstack release and the build it came from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is a release number plus the revision the binary was built from.
type Version struct {
	Major, Minor, Patch string
	// Metadata is appended to the release number after a dash.
	Metadata string
	// Build is a git ident string or a vcs revision.
	Build string
}

// FpstackVersion is the current version of fpstack.
var FpstackVersion = Version{
	Major: "0", Minor: "3", Patch: "0",
	Build: "$Id$",
}

// unexpandedIdent is what Build holds when git did not expand the ident
// attribute.
const unexpandedIdent = "$Id$"

func (v Version) String() string {
	release := v.Major + "." + v.Minor + "." + v.Patch
	if v.Metadata != "" {
		release += "-" + v.Metadata
	}
	build := v.Build
	if strings.HasPrefix(build, unexpandedIdent) {
		if rev := vcsRevision(); rev != "" {
			build = rev
		}
	}
	return fmt.Sprintf("Version: %s\nBuild: %s", release, build)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// BuildInfo returns the toolchain version followed by the modules the
// binary was built with.
func BuildInfo() string {
	return runtime.Version() + "\n" + listModules()
}
