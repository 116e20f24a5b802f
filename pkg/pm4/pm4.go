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

// Package pm4 builds PM4 type-3 command streams for the GFX11 compute
// engine.
//
// A Stream is pure data: it never owns or references the buffers whose
// addresses its packets mention. Malformed packets can hang or reset the
// GPU, so builders validate what they can (register windows, address
// alignment) and panic on violations, which are caller bugs.
package pm4

import (
	"encoding/binary"
	"fmt"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
)

// Stream is an append-only sequence of command dwords.
type Stream struct {
	words []uint32
}

func (s *Stream) emit(w uint32) {
	s.words = append(s.words, w)
}

// Len returns the stream length in dwords.
func (s *Stream) Len() int {
	return len(s.words)
}

// Size returns the stream length in bytes.
func (s *Stream) Size() int {
	return 4 * len(s.words)
}

// Words returns the encoded dwords. The slice aliases the stream's storage
// and is invalidated by further appends.
func (s *Stream) Words() []uint32 {
	return s.words
}

// Bytes returns the stream in the little-endian byte order the command
// processor fetches.
func (s *Stream) Bytes() []byte {
	out := make([]byte, 4*len(s.words))
	for i, w := range s.words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// Reset empties the stream, retaining capacity.
func (s *Stream) Reset() {
	s.words = s.words[:0]
}

// SetShReg appends a SET_SH_REG packet writing value to the shader register
// at dword offset reg. reg must lie in the SH register window.
func (s *Stream) SetShReg(reg, value uint32) {
	if reg < amdgpu.SHRegOffset || reg >= amdgpu.SHRegEnd {
		panic(fmt.Sprintf("pm4: register offset %#x outside SH register window [%#x, %#x)", reg, amdgpu.SHRegOffset, amdgpu.SHRegEnd))
	}
	s.emit(amdgpu.PKT3(amdgpu.PKT3SetSHReg, 1, false))
	s.emit(reg - amdgpu.SHRegOffset)
	s.emit(value)
}

// DispatchDirect appends a DISPATCH_DIRECT packet launching a compute grid
// of dimX x dimY x dimZ workgroups.
func (s *Stream) DispatchDirect(dimX, dimY, dimZ, initiator uint32) {
	s.emit(amdgpu.PKT3(amdgpu.PKT3DispatchDirect, 3, false) | amdgpu.PKT3ShaderTypeCompute)
	s.emit(dimX)
	s.emit(dimY)
	s.emit(dimZ)
	s.emit(initiator)
}

// AcquireMem appends an ACQUIRE_MEM barrier that invalidates the instruction
// cache, constant cache, and both texture cache levels over the full address
// range, so code and data uploaded before this point are visible to waves
// launched after it.
func (s *Stream) AcquireMem() {
	s.emit(amdgpu.PKT3(amdgpu.PKT3AcquireMem, 5, false))
	coherCntl := uint32(1<<0 | // SH_ICACHE_ACTION_ENA
		1<<1 | // SH_KCACHE_ACTION_ENA
		1<<3 | // TC_ACTION_ENA
		1<<4) // TCL1_ACTION_ENA
	s.emit(coherCntl)
	s.emit(0xFFFFFFFF) // COHER_SIZE
	s.emit(0xFF)       // COHER_SIZE_HI
	s.emit(0)          // COHER_BASE
	s.emit(0)          // COHER_BASE_HI
	s.emit(0)          // POLL_INTERVAL
}

// ReleaseMem appends a RELEASE_MEM packet that writes the 32-bit value to
// device virtual address va once all prior work has completed, letting the
// device signal progress into host-visible memory. va must be mapped and
// writable in the dispatching VMID's address space.
func (s *Stream) ReleaseMem(va uint64, value uint32) {
	s.emit(amdgpu.PKT3(amdgpu.PKT3ReleaseMem, 6, false))
	eventCntl := uint32(0x5<<0 | // EVENT_INDEX: end of pipe
		0x2E<<8) // EVENT_TYPE: CS_DONE
	s.emit(eventCntl)
	s.emit(1) // DATA_SEL: 32-bit value
	s.emit(uint32(va))
	s.emit(uint32(va >> 32))
	s.emit(value)
	s.emit(0) // DATA_HI
	s.emit(0) // INT_SEL: no interrupt
}

// DispatchConfig describes one compute dispatch.
type DispatchConfig struct {
	// CodeAddr is the device virtual address of the shader machine code.
	// Must be 256-byte aligned; the hardware program counter base drops the
	// low 8 bits.
	CodeAddr uint64

	// Rsrc1, Rsrc2, Rsrc3 are the COMPUTE_PGM_RSRC words produced by the
	// shader compiler; they must match the code's register and LDS usage.
	Rsrc1, Rsrc2, Rsrc3 uint32

	// Threads are the workgroup dimensions (threads per group), Groups the
	// grid dimensions (groups per dispatch).
	ThreadsX, ThreadsY, ThreadsZ uint32
	GroupsX, GroupsY, GroupsZ    uint32
}

// ComputeDispatch appends the full packet sequence for one compute dispatch:
// a barrier, program address and resource registers, workgroup dimensions,
// and the dispatch itself.
func (s *Stream) ComputeDispatch(cfg DispatchConfig) {
	if cfg.CodeAddr&0xFF != 0 {
		panic(fmt.Sprintf("pm4: shader code address %#x is not 256-byte aligned", cfg.CodeAddr))
	}

	s.AcquireMem()

	// The 48-bit program base is packed as bits [39:8] and [47:40].
	s.SetShReg(amdgpu.RegComputePGMLo, uint32(cfg.CodeAddr>>8))
	s.SetShReg(amdgpu.RegComputePGMHi, uint32(cfg.CodeAddr>>40))

	s.SetShReg(amdgpu.RegComputePGMRsrc1, cfg.Rsrc1)
	s.SetShReg(amdgpu.RegComputePGMRsrc2, cfg.Rsrc2)
	s.SetShReg(amdgpu.RegComputePGMRsrc3, cfg.Rsrc3)

	s.SetShReg(amdgpu.RegComputeNumThreadX, cfg.ThreadsX)
	s.SetShReg(amdgpu.RegComputeNumThreadY, cfg.ThreadsY)
	s.SetShReg(amdgpu.RegComputeNumThreadZ, cfg.ThreadsZ)

	initiator := uint32(amdgpu.DispatchInitiatorComputeShaderEn | amdgpu.DispatchInitiatorForceStartAt000)
	s.DispatchDirect(cfg.GroupsX, cfg.GroupsY, cfg.GroupsZ, initiator)
}
