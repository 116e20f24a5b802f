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

// Package regmap describes the privileged registers the debugger touches.
//
// Register offsets and block base addresses are ASIC-specific and must be
// verified against real hardware (e.g. with UMR's register database) before
// use; a wrong map can write to unintended registers and hang the GPU. The
// map is therefore loadable from a per-ASIC TOML file rather than compiled
// in, and the built-in GC11 map carries placeholder offsets.
package regmap

import "fmt"

// Reg names a register in the debugger's closed register set.
type Reg int

// The registers needed for trap handler setup and wave control.
const (
	// SQShaderTBALo and SQShaderTBAHi hold the per-VMID trap handler code
	// address: bits [39:8] in the low register, bits [47:40] plus the trap
	// enable bit in the high register.
	SQShaderTBALo Reg = iota
	SQShaderTBAHi
	// SQShaderTMALo and SQShaderTMAHi hold the per-VMID trap scratch memory
	// address as a plain 64-bit low/high pair.
	SQShaderTMALo
	SQShaderTMAHi
	// SQCmd halts, resumes, or single-steps waves by hardware ID.
	SQCmd

	numRegs
)

var regNames = [numRegs]string{
	SQShaderTBALo: "SQ_SHADER_TBA_LO",
	SQShaderTBAHi: "SQ_SHADER_TBA_HI",
	SQShaderTMALo: "SQ_SHADER_TMA_LO",
	SQShaderTMAHi: "SQ_SHADER_TMA_HI",
	SQCmd:         "SQ_CMD",
}

// String implements fmt.Stringer.String.
func (r Reg) String() string {
	if r < 0 || r >= numRegs {
		return fmt.Sprintf("Reg(%d)", int(r))
	}
	return regNames[r]
}

// Mode is a register's addressing mode.
type Mode int

const (
	// MMIO registers live at 4-byte intervals; their table offset is a dword
	// index that is scaled by 4 to produce a byte offset.
	MMIO Mode = iota
	// Indirect registers go through an index/data pair and take their offset
	// unscaled. None of the current set needs this, but the map supports it.
	Indirect
)

// Info is a register's placement metadata: which hardware block's base
// address applies and how the offset is addressed.
type Info struct {
	Block int
	Mode  Mode
}

// NumBlocks is the size of the per-block base address table.
const NumBlocks = 16

// Map is one ASIC's register descriptor table. Every Reg in the closed set
// has an entry in both the offset and info tables; constructors enforce this.
type Map struct {
	asic    string
	offsets [numRegs]uint64
	infos   [numRegs]Info
	bases   [NumBlocks]uint64
}

// ASIC returns the name of the ASIC the map describes.
func (m *Map) ASIC() string {
	return m.asic
}

func (m *Map) check(r Reg) {
	if r < 0 || r >= numRegs {
		panic(fmt.Sprintf("regmap: invalid register %d", int(r)))
	}
}

// Offset returns r's raw table offset.
func (m *Map) Offset(r Reg) uint64 {
	m.check(r)
	return m.offsets[r]
}

// Info returns r's placement metadata.
func (m *Map) Info(r Reg) Info {
	m.check(r)
	return m.infos[r]
}

// Base returns the base address of hardware block i.
func (m *Map) Base(i int) uint64 {
	if i < 0 || i >= NumBlocks {
		panic(fmt.Sprintf("regmap: invalid block index %d", i))
	}
	return m.bases[i]
}

// TotalByteOffset returns the byte offset at which r is accessed through the
// register file: raw offset plus the block base, scaled by 4 for
// word-addressed MMIO registers and unscaled for indirect ones.
func (m *Map) TotalByteOffset(r Reg) uint64 {
	m.check(r)
	off := m.offsets[r] + m.bases[m.infos[r].Block]
	if m.infos[r].Mode == MMIO {
		off *= 4
	}
	return off
}

// GC11 returns the built-in map for gfx1100 (Navi31).
//
// The offsets and the GC block base are placeholders that have never been
// validated against hardware; treat this map as a template and load a
// verified one with LoadFile for real use.
func GC11() *Map {
	m := &Map{asic: "gfx1100"}
	m.offsets = [numRegs]uint64{
		SQShaderTBALo: 0x2E00,
		SQShaderTBAHi: 0x2E01,
		SQShaderTMALo: 0x2E02,
		SQShaderTMAHi: 0x2E03,
		SQCmd:         0x2D00,
	}
	for r := Reg(0); r < numRegs; r++ {
		m.infos[r] = Info{Block: 0, Mode: MMIO}
	}
	return m
}
