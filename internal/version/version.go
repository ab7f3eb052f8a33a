package version

import (
	"fmt"
	"runtime"
)

// Set at link time with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("gamebox %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}
