// Package buildinfo reports the version stamped into the binary with
// -ldflags "-X courierplan/internal/buildinfo.Version=...".
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the stamped values, falling back to the VCS settings the Go
// toolchain records when nothing was stamped.
func Info() map[string]string {
	info := map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info["go"] = bi.GoVersion
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info["commit"] == "":
			info["commit"] = s.Value
		case s.Key == "vcs.time" && info["builtAt"] == "":
			info["builtAt"] = s.Value
		}
	}
	return info
}
