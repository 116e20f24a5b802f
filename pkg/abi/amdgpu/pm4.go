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

// PM4 type-3 packet header layout for GFX11:
//
//	bits [31:30] packet type (always 3)
//	bits [29:16] count (number of payload dwords minus one)
//	bits [15:8]  IT opcode
//	bit  [1]     shader type (0 = graphics, 1 = compute)
//	bit  [0]     predicate
//
// The format is not versioned; packet semantics for this hardware generation
// depend on this exact bit layout. Some driver sample headers present the
// count and predicate fields at positions overlapping the opcode and type
// fields; the hardware fields above are disjoint, so any header built by
// PKT3 decodes back to its inputs.
const (
	pkt3Type       = 3
	pkt3CountMask  = 0x3FFF
	pkt3CountShift = 16
	pkt3OpMask     = 0xFF
	pkt3OpShift    = 8

	// PKT3ShaderTypeCompute selects the compute shader class in packets that
	// carry a shader type bit (e.g. DISPATCH_DIRECT).
	PKT3ShaderTypeCompute = 1 << 1

	pkt3Predicate = 1 << 0
)

// PKT3 builds a type-3 packet header. count is the number of payload dwords
// minus one.
func PKT3(op uint8, count uint16, predicate bool) uint32 {
	h := uint32(pkt3Type)<<30 | uint32(count&pkt3CountMask)<<pkt3CountShift | uint32(op)<<pkt3OpShift
	if predicate {
		h |= pkt3Predicate
	}
	return h
}

// PKT3Opcode extracts the IT opcode from a type-3 packet header.
func PKT3Opcode(header uint32) uint8 {
	return uint8(header >> pkt3OpShift)
}

// PKT3Count extracts the count field from a type-3 packet header.
func PKT3Count(header uint32) uint16 {
	return uint16(header>>pkt3CountShift) & pkt3CountMask
}

// PKT3Predicate reports whether the predicate bit is set in a type-3 packet
// header.
func PKT3Predicate(header uint32) bool {
	return header&pkt3Predicate != 0
}

// PM4 type-3 opcodes (compute subset).
const (
	PKT3NOP              = 0x10
	PKT3SetBase          = 0x11
	PKT3ClearState       = 0x12
	PKT3DispatchDirect   = 0x15
	PKT3DispatchIndirect = 0x16
	PKT3AtomicMem        = 0x1E
	PKT3LoadSHReg        = 0x30
	PKT3LoadContextReg   = 0x31
	PKT3WaitRegMem       = 0x3C
	PKT3EventWrite       = 0x46
	PKT3ReleaseMem       = 0x49
	PKT3AcquireMem       = 0x58
	PKT3SetContextReg    = 0x69
	PKT3SetSHReg         = 0x76
	PKT3SetUConfigReg    = 0x79
)

// Register windows addressable by the SET_*_REG packets. SET_SH_REG encodes
// its target as a dword index relative to SHRegOffset.
const (
	SHRegOffset      = 0x2C00
	SHRegEnd         = 0x3000
	ContextRegOffset = 0xA000
	ContextRegEnd    = 0xB000
	UConfigRegOffset = 0xC000
	UConfigRegEnd    = 0xD000
)

// Compute shader register dword offsets for SET_SH_REG (gfx1100).
const (
	RegComputeNumThreadX  = 0x2E07
	RegComputeNumThreadY  = 0x2E08
	RegComputeNumThreadZ  = 0x2E09
	RegComputePGMLo       = 0x2E0C
	RegComputePGMHi       = 0x2E0D
	RegComputePGMRsrc1    = 0x2E12
	RegComputePGMRsrc2    = 0x2E13
	RegComputeDispatchBit = 0x2E15
	RegComputeTmpringSize = 0x2E18
	RegComputePGMRsrc3    = 0x2E28
)

// COMPUTE_DISPATCH_INITIATOR flags.
const (
	DispatchInitiatorComputeShaderEn = 1 << 0
	DispatchInitiatorForceStartAt000 = 1 << 1
)
