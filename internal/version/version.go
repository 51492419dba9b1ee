// Package version holds the build metadata of the mirlean CLI. The
// variables are set at link time, e.g.
//
//	go build -ldflags "-X mirlean/internal/version.GitCommit=$(git rev-parse HEAD)"
package version

import (
	"regexp"

	"github.com/fatih/color"
)

// Tagline is printed next to the version number.
const Tagline = "from borrow checker to proof checker"

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)

	// Version is colored when stdout was a terminal at startup.
	Version = majorColor.Sprint("0") + "." + minorColor.Sprint("1") + "." + patchColor.Sprint("0") + "-dev"

	GitCommit  = ""
	GitMessage = ""
	// BuildDate is ISO-8601.
	BuildDate = ""
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Plain returns Version without terminal escape sequences, for JSON
// payloads and cache keys.
func Plain() string {
	return ansiSeq.ReplaceAllString(Version, "")
}
