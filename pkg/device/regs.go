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
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/regmap"
)

// RegisterWriter writes one 32-bit register under an addressing context.
// Device implements it against the live hardware; tests substitute fakes.
type RegisterWriter interface {
	WriteReg32(r regmap.Reg, state amdgpu.Regs2StateV2, value uint32)
}

// VMIDState returns the addressing context selecting a VMID's view of the
// per-VMID shader registers.
func VMIDState(vmid uint32) amdgpu.Regs2StateV2 {
	return amdgpu.Regs2StateV2{
		UseSRBM: 1,
		SRBM:    amdgpu.Regs2SRBM{VMID: vmid},
		XCCID:   amdgpu.XCCAll,
	}
}

// ReadReg32 reads a register under the given addressing context. Panics on
// any failure: register access is either fully working or the tool cannot
// do its job, and a silently wrong register value is worse than a crash.
func (d *Device) ReadReg32(r regmap.Reg, state amdgpu.Regs2StateV2) uint32 {
	var buf [4]byte
	d.regOp32(r, state, buf[:], false)
	return binary.LittleEndian.Uint32(buf[:])
}

// WriteReg32 writes a register under the given addressing context. Panics on
// any failure.
func (d *Device) WriteReg32(r regmap.Reg, state amdgpu.Regs2StateV2, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	d.regOp32(r, state, buf[:], true)
}

func (d *Device) regOp32(r regmap.Reg, state amdgpu.Regs2StateV2, buf []byte, write bool) {
	if d.regsFD < 0 {
		panic("register access without an open regs2 session")
	}
	off := d.regs.TotalByteOffset(r)
	if err := ioctlInvokePtr(d.regsFD, amdgpu.Regs2IocSetStateV2, &state); err != nil {
		panic(fmt.Sprintf("regs2 SET_STATE_V2: %v", err))
	}
	pos, err := unix.Seek(d.regsFD, int64(off), unix.SEEK_SET)
	if err != nil || pos != int64(off) {
		panic(fmt.Sprintf("regs2 seek to %#x: pos=%#x err=%v", off, pos, err))
	}
	var n int
	if write {
		n, err = unix.Write(d.regsFD, buf)
	} else {
		n, err = unix.Read(d.regsFD, buf)
	}
	if err != nil || n != 4 {
		op := "read"
		if write {
			op = "write"
		}
		panic(fmt.Sprintf("regs2 %s of %s at %#x: n=%d err=%v", op, r, off, n, err))
	}
}
