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

package amdgpu

import "unsafe"

// The amdgpu debugfs "regs2" file provides privileged single-register MMIO
// access: an ioctl installs an addressing context (which shader engine or
// VMID the following access targets), then a 4-byte read or write at a
// seeked byte offset touches the register itself. The two steps are separate
// kernel operations with no atomicity between them; concurrent users of the
// file can interleave and address the wrong register.

// Regs2DebugfsPattern locates the regs2 file for DRI device N.
const Regs2DebugfsPattern = "/sys/kernel/debug/dri/%d/regs2"

// Regs2GRBM selects a shader engine/array/instance for GRBM-indexed access.
type Regs2GRBM struct {
	SE       uint32
	SH       uint32
	Instance uint32
}

// Regs2SRBM selects a microengine/pipe/queue/VMID for SRBM-indexed access.
type Regs2SRBM struct {
	ME    uint32
	Pipe  uint32
	Queue uint32
	VMID  uint32
}

// Regs2StateV2 is struct amdgpu_debugfs_regs2_iocdata_v2, the addressing
// context installed before each regs2 read or write.
type Regs2StateV2 struct {
	UseSRBM uint32
	UseGRBM uint32
	PGLock  uint32
	GRBM    Regs2GRBM
	SRBM    Regs2SRBM
	XCCID   uint32
}

// XCCAll targets every execution cluster on multi-die parts.
const XCCAll = ^uint32(0)

// Regs2IocSetStateV2 is AMDGPU_DEBUGFS_REGS2_IOC_SET_STATE_V2.
var Regs2IocSetStateV2 = IOW(0x20, 0x02, uint32(unsafe.Sizeof(Regs2StateV2{})))
