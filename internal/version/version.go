// Package version holds the build-time identity of the lk binary. Release
// builds set the variables with -ldflags; local builds keep the defaults.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the multi-line text printed by lk version.
func Info() string {
	return fmt.Sprintf("lk version %s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s\n",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies lk to cloud APIs, e.g. "lock-and-key/1.2.0".
func UserAgent() string {
	return "lock-and-key/" + Version
}
