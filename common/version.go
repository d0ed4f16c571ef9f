// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// ProgramName is the binary and tracing service name
const ProgramName = "pvtrend"

var (
	// commitHash and buildDate are stamped by the mage build target
	commitHash string
	buildDate  string
)

// Version is a SemVer 2.0.0 build version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Program      string   `json:"program" toml:"program"`
	Version      string   `json:"version" toml:"version"`
	OSArch       string   `json:"osArch" toml:"osArch"`
	BuildDate    string   `json:"buildDate" toml:"buildDate"`
	Commit       string   `json:"commit" toml:"commit"`
	GoVersion    string   `json:"goVersion" toml:"goVersion"`
	Dependencies []string `json:"dependencies" toml:"dependencies"`
}

func (v Version) String() string {
	if v.Suffix == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}

	metadata := ""
	if commitHash != "" {
		metadata = "+" + strings.ToLower(commitHash)
	}
	return fmt.Sprintf("%d.%d.%d-%s%s", v.Major, v.Minor, v.Patch, v.Suffix, metadata)
}

// dependencies returns the module dependencies as sorted path="version" strings
func dependencies() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return []string{}
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)

	return deps
}

// CurrentBuildInfo collects the version, build stamp, and dependencies of the binary
func CurrentBuildInfo() BuildInfo {
	date := buildDate
	if date == "" {
		date = "unknown"
	}

	return BuildInfo{
		Program:      ProgramName,
		Version:      "v" + CurrentVersion.String(),
		OSArch:       runtime.GOOS + "/" + runtime.GOARCH,
		BuildDate:    date,
		Commit:       commitHash,
		GoVersion:    runtime.Version(),
		Dependencies: dependencies(),
	}
}

// String renders the build info the way `pvtrend version` prints it
func (info BuildInfo) String() string {
	return fmt.Sprintf(`%s %s %s

Build Date: %s
Commit: %s
Built with: %s

Dependencies:

%s`, info.Program, info.Version, info.OSArch, info.BuildDate, info.Commit, info.GoVersion, strings.Join(info.Dependencies, "\n"))
}
