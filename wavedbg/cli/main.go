// Copyright 2025 The hwdbg Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli is the main entrypoint for wavedbg.
package cli

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"k8s.io/klog/v2"

	"hwdbg.dev/hwdbg/wavedbg/cmd"
)

var (
	devicePath = flag.String("device", "", "DRM render node to open (default /dev/dri/card0).")
	regmapPath = flag.String("regmap", "", "TOML register map overriding the built-in gfx1100 map.")
)

// Main is the main entrypoint.
func Main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(cmd.Probe), "")
	subcommands.Register(new(cmd.Smoke), "")
	subcommands.Register(new(cmd.Dispatch), "")
	subcommands.Register(new(cmd.Trap), "")

	klog.InitFlags(nil)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	conf := &cmd.Config{
		DevicePath: *devicePath,
		RegmapPath: *regmapPath,
	}

	ctx := context.Background()
	exitCode := subcommands.Execute(ctx, conf)
	klog.Flush()
	os.Exit(int(exitCode))
}
