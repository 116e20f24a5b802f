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

package device

import (
	"fmt"

	"k8s.io/klog/v2"

	"hwdbg.dev/hwdbg/pkg/regmap"
)

// Trap handler install writes the per-VMID trap base (TBA) and trap memory
// (TMA) registers. The hardware stores the TBA as a 48-bit address shifted
// right by 8, so handler code must sit on a 256-byte boundary.

const (
	trapVMIDFirst = 1
	trapVMIDLast  = 8

	// Bit 31 of SQ_SHADER_TBA_HI arms the trap handler.
	trapEnable = uint32(1) << 31
)

// packTrapBase splits a 256-byte-aligned handler address into the TBA_LO
// and TBA_HI register values, without the enable bit.
func packTrapBase(tba uint64) (lo, hi uint32) {
	return uint32(tba >> 8), uint32(tba>>40) & 0xFF
}

// unpackTrapBase reverses packTrapBase, ignoring the enable bit.
func unpackTrapBase(lo, hi uint32) uint64 {
	return uint64(lo)<<8 | uint64(hi&0xFF)<<40
}

// InstallTrapHandler points every application VMID's trap registers at the
// handler code at tba and the trap scratch memory at tma, and arms the
// handler. tba must be 256-byte aligned; InstallTrapHandler panics before
// touching any register otherwise.
//
// This overwrites trap state system wide. Every shader that faults or hits
// s_trap on this GPU, from any process, will run this handler until the
// registers are rewritten.
func InstallTrapHandler(w RegisterWriter, tba, tma uint64) {
	if tba&0xFF != 0 {
		panic(fmt.Sprintf("trap handler address %#x is not 256-byte aligned", tba))
	}
	klog.Warning("installing a global trap handler; all shader traps on this GPU now route to it")
	tbaLo, tbaHi := packTrapBase(tba)
	tbaHi |= trapEnable
	tmaLo, tmaHi := uint32(tma), uint32(tma>>32)
	for vmid := uint32(trapVMIDFirst); vmid <= trapVMIDLast; vmid++ {
		state := VMIDState(vmid)
		w.WriteReg32(regmap.SQShaderTBALo, state, tbaLo)
		w.WriteReg32(regmap.SQShaderTBAHi, state, tbaHi)
		w.WriteReg32(regmap.SQShaderTMALo, state, tmaLo)
		w.WriteReg32(regmap.SQShaderTMAHi, state, tmaHi)
	}
	klog.Infof("trap handler installed: tba=%#x tma=%#x (VMIDs %d-%d)", tba, tma, trapVMIDFirst, trapVMIDLast)
}
