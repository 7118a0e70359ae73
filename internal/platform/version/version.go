package version

import "runtime"

// Stamped by the release build with -ldflags "-X .../version.Version=...".
var (
	// Version is the gateway release, "dev" for local builds.
	Version = "dev"
	// Commit is the source revision the binary was built from.
	Commit = "unknown"
	// BuildTime is when the binary was built, RFC 3339.
	BuildTime = "unknown"
)

// ProductName is reported on the admin surface and in the startup log.
const ProductName = "N2k->NMEA0183 TCP gateway"

// Info is the build identity served at /version and exported as the
// build_info metric labels.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
