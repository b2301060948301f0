package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed version.txt
var versionFile string

// Version returns the current fetchkit version
func Version() string {
	return strings.TrimSpace(versionFile)
}

// UserAgent is the default User-Agent sent by the CLI.
func UserAgent() string {
	return "fetchkit/" + Version() + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
