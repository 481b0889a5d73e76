// Package buildinfo carries values stamped by the linker, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/cpgamebot/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Revision returns Commit, falling back to the VCS revision recorded by the
// Go toolchain and then to "local".
func Revision() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "local"
}
