package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "examprep", resolveVersion(version, buildInfoVersion()))
	},
}

func buildInfoVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return ""
}

// resolveVersion prefers the linker-set version, then the module version,
// normalized to canonical semver. Anything else is a development build.
func resolveVersion(linked, module string) string {
	for _, v := range []string{linked, module} {
		if v == "" {
			continue
		}
		if v[0] != 'v' {
			v = "v" + v
		}
		if semver.IsValid(v) {
			return semver.Canonical(v)
		}
	}
	return "(devel)"
}
