// Package version exposes build metadata injected with -ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/inkpress/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the released version of inkpress.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `inkpress version`.
func String() string {
	v := Version
	if v == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("inkpress %s (commit %s, built %s, %s)", v, GitCommit, BuildTime, runtime.Version())
}
