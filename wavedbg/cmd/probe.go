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

package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// Probe implements subcommands.Command for the "probe" command.
type Probe struct{}

// Name implements subcommands.Command.Name.
func (*Probe) Name() string {
	return "probe"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Probe) Synopsis() string {
	return "open the GPU and report its identity and capabilities"
}

// Usage implements subcommands.Command.Usage.
func (*Probe) Usage() string {
	return "probe - open the GPU and report its identity and capabilities.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Probe) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Probe) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*Config)
	d, err := openDevice(conf)
	if err != nil {
		Fatalf("%v", err)
	}
	defer d.Close()

	info := d.Info()
	fmt.Printf("device_id:    %#x\n", info.DeviceID)
	fmt.Printf("chip_rev:     %#x\n", info.ChipRev)
	fmt.Printf("external_rev: %#x\n", info.ExternalRev)
	fmt.Printf("family:       %d\n", info.Family)
	fmt.Printf("drm:          %d.%d\n", info.DRMMajor, info.DRMMinor)
	fmt.Printf("regs2:        %v\n", d.RegsAvailable())
	return subcommands.ExitSuccess
}
