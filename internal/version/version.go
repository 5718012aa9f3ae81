/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version holds build information.
package version

import "runtime/debug"

// Version is set at build time via ldflags:
//
//	-X github.com/friendsincode/weekplanner/internal/version.Version=X.Y.Z
var Version = "dev"

// String returns Version, falling back to the module version recorded by
// the Go toolchain for `go install` builds.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
