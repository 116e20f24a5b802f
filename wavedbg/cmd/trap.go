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
	"time"

	"github.com/google/subcommands"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/device"
	"hwdbg.dev/hwdbg/pkg/shader"
	"hwdbg.dev/hwdbg/pkg/wavectl"
)

// Trap implements subcommands.Command for the "trap" command. It installs a
// trap handler system wide and optionally waits for a wave to halt in it,
// printing the wave's spilled state.
type Trap struct {
	handler string
	wait    time.Duration
}

// Name implements subcommands.Command.Name.
func (*Trap) Name() string {
	return "trap"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Trap) Synopsis() string {
	return "install a trap handler and optionally wait for a halted wave"
}

// Usage implements subcommands.Command.Usage.
func (*Trap) Usage() string {
	return `trap --handler <binary> [--wait <duration>] - install a trap handler.

The handler machine code is placed in uncached GPU memory with a scratch
buffer for the CPU handshake, and the per-VMID trap registers of every
application VMID are pointed at it. With --wait, polls the scratch buffer
for a halted wave, prints its state, and resumes it.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (t *Trap) SetFlags(f *flag.FlagSet) {
	f.StringVar(&t.handler, "handler", "", "trap handler machine code binary (required)")
	f.DurationVar(&t.wait, "wait", 0, "how long to wait for a halted wave; 0 installs and exits")
}

// Execute implements subcommands.Command.Execute.
func (t *Trap) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if t.handler == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*Config)

	prog, err := shader.LoadBinary(t.handler, 0, 0, 0)
	if err != nil {
		Fatalf("%v", err)
	}

	dev, err := openDevice(conf)
	if err != nil {
		Fatalf("%v", err)
	}
	defer dev.Close()
	if !dev.RegsAvailable() {
		Fatalf("trap installation needs the debugfs regs2 interface; run as root with debugfs mounted")
	}

	// Both buffers are uncached: the handler code so the hardware fetches
	// what was just uploaded, the scratch so the CPU/wave handshake needs
	// no cache maintenance.
	codeBuf, err := dev.AllocBuffer(uint64(len(prog.Code)), amdgpu.GEMDomainGTT, true)
	if err != nil {
		Fatalf("allocating trap handler buffer: %v", err)
	}
	defer dev.FreeBuffer(codeBuf)
	codeBuf.Upload(prog.Code)

	scratchBuf, err := dev.AllocBuffer(wavectl.ScratchSize, amdgpu.GEMDomainGTT, true)
	if err != nil {
		Fatalf("allocating trap scratch buffer: %v", err)
	}
	defer dev.FreeBuffer(scratchBuf)

	device.InstallTrapHandler(dev, codeBuf.VA(), scratchBuf.VA())
	fmt.Printf("trap handler installed: tba=%#x tma=%#x\n", codeBuf.VA(), scratchBuf.VA())

	if t.wait <= 0 {
		return subcommands.ExitSuccess
	}

	ctl, err := wavectl.New(scratchBuf.HostBytes(), dev)
	if err != nil {
		Fatalf("%v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, t.wait)
	defer cancel()
	if err := ctl.WaitHalt(waitCtx); err != nil {
		Fatalf("%v", err)
	}

	state := ctl.State()
	fmt.Printf("wave halted:\n")
	fmt.Printf("  hw_id:  %#x\n", state.HWID)
	fmt.Printf("  pc:     %#x\n", state.PC)
	fmt.Printf("  status: %#x\n", state.Status)
	fmt.Printf("  mode:   %#x\n", state.Mode)
	for i, v := range state.SGPR {
		fmt.Printf("  s%-2d:    %#x\n", i, v)
	}
	ctl.Resume()
	fmt.Println("wave resumed")
	return subcommands.ExitSuccess
}
