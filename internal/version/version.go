// Package version reports the geckocpp build version.
package version

import "runtime/debug"

// Version is the release version. Overridable at build time:
//
//	go build -ldflags "-X github.com/FractalBrew/geckocpp/internal/version.Version=1.0.0"
var Version = "0.2.0"

// Info returns the version string, with the VCS revision appended when
// the binary was built from a checkout.
func Info() string {
	if rev := revision(); rev != "" {
		return Version + " (" + rev + ")"
	}
	return Version
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
