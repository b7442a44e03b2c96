package main

import (
	"fmt"
	"runtime/debug"

	"github.com/calehh/hac-gov/app"
	"github.com/spf13/cobra"
)

// GitCommit is set with -ldflags "-X main.GitCommit=...". When empty the vcs
// revision stamped by the go toolchain is used.
var GitCommit string

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

func VersionWithCommit(gitCommit string) string {
	vsn := Version
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	return vsn
}

func buildCommit() string {
	if GitCommit != "" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the node and app protocol version",
	Aliases: []string{"V"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s app:%d\n", VersionWithCommit(buildCommit()), app.AppVersion)
	},
}
