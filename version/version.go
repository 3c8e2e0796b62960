// Package version reports which build of modsynth is running.
package version

import "runtime/debug"

// Version can be set at link time, e.g.
// go build -ldflags "-X github.com/vsariola/modsynth/version.Version=$(git describe --dirty)" ./cmd/modsynth-play
var Version string

// VersionOrHash is Version if it was set, else the module version of a binary
// built with go install, else the short vcs revision, suffixed with -dirty
// when the tree had local changes. Empty if none is known.
var VersionOrHash = fromBuildInfo()

func fromBuildInfo() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(len(s.Value), 7)]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		return rev + "-dirty"
	}
	return rev
}
