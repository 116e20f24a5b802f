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

// Package cmd holds the wavedbg subcommands.
package cmd

import (
	"fmt"
	"os"

	"hwdbg.dev/hwdbg/pkg/device"
	"hwdbg.dev/hwdbg/pkg/regmap"
)

// Config carries the global flags into each subcommand.
type Config struct {
	// DevicePath is the DRM node to open; empty selects the default.
	DevicePath string
	// RegmapPath is a TOML register map file; empty selects the built-in
	// gfx1100 map.
	RegmapPath string
}

// Fatalf logs to stderr and exits with a failure status.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "wavedbg: "+format+"\n", args...)
	os.Exit(1)
}

// openDevice opens the configured device with the configured register map.
func openDevice(conf *Config) (*device.Device, error) {
	var regs *regmap.Map
	if conf.RegmapPath != "" {
		var err error
		regs, err = regmap.LoadFile(conf.RegmapPath)
		if err != nil {
			return nil, err
		}
	}
	return device.Open(conf.DevicePath, regs)
}
