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

// amdgpu driver-private command numbers, from
// include/uapi/drm/amdgpu_drm.h.
const (
	CommandGEMCreate = 0x00
	CommandGEMMmap   = 0x01
	CommandCtx       = 0x02
	CommandBOList    = 0x03
	CommandCS        = 0x04
	CommandInfo      = 0x05
	CommandGEMVA     = 0x08
	CommandWaitCS    = 0x09
)

// amdgpu command ioctl request numbers. GEM_VA and INFO are write-only in the
// kernel's definition; the rest are read/write unions.
var (
	IoctlGEMCreate = drmCommandIOWR(CommandGEMCreate, uint32(unsafe.Sizeof(GEMCreateIn{})))
	IoctlGEMMmap   = drmCommandIOWR(CommandGEMMmap, uint32(unsafe.Sizeof(GEMMmapOut{})))
	IoctlCtx       = drmCommandIOWR(CommandCtx, uint32(unsafe.Sizeof(CtxIn{})))
	IoctlBOList    = drmCommandIOWR(CommandBOList, uint32(unsafe.Sizeof(BOListIn{})))
	IoctlCS        = drmCommandIOWR(CommandCS, uint32(unsafe.Sizeof(CSIn{})))
	IoctlInfo      = drmCommandIOW(CommandInfo, uint32(unsafe.Sizeof(Info{})))
	IoctlGEMVA     = drmCommandIOW(CommandGEMVA, uint32(unsafe.Sizeof(GEMVA{})))
	IoctlWaitCS    = drmCommandIOWR(CommandWaitCS, uint32(unsafe.Sizeof(WaitCSIn{})))
)

// GEM memory domains.
const (
	GEMDomainCPU  = 0x1
	GEMDomainGTT  = 0x2
	GEMDomainVRAM = 0x4
	GEMDomainGDS  = 0x8
	GEMDomainGWS  = 0x10
	GEMDomainOA   = 0x20
)

// GEM creation flags.
const (
	GEMCreateCPUAccessRequired = 1 << 0
	GEMCreateNoCPUAccess       = 1 << 1
	GEMCreateCPUGTTUSWC        = 1 << 2
	GEMCreateVRAMCleared       = 1 << 3
	GEMCreateVMAlwaysValid     = 1 << 6
	GEMCreateExplicitSync      = 1 << 7
)

// GPU VA map operations and page attributes for GEM_VA.
const (
	VAOpMap     = 1
	VAOpUnmap   = 2
	VAOpClear   = 3
	VAOpReplace = 4

	VMPageReadable   = 1 << 1
	VMPageWriteable  = 1 << 2
	VMPageExecutable = 1 << 3
	VMMTypeNC        = 1 << 5
	VMMTypeWC        = 2 << 5
	VMMTypeCC        = 3 << 5
	VMMTypeUC        = 4 << 5
	VMPageNoAlloc    = 1 << 9
)

// Command submission context operations.
const (
	CtxOpAllocCtx = 1
	CtxOpFreeCtx  = 2
	CtxOpQuery    = 3

	CtxPriorityNormal = 0
)

// Hardware IP (execution queue) types.
const (
	HWIPGfx     = 0
	HWIPCompute = 1
	HWIPDMA     = 2
)

// Command stream chunk identifiers.
const (
	ChunkIDIB           = 0x01
	ChunkIDFence        = 0x02
	ChunkIDDependencies = 0x03
)

// BO list operations.
const (
	BOListOpCreate  = 0
	BOListOpDestroy = 1
	BOListOpUpdate  = 2
)

// TimeoutInfinite makes WAIT_CS block until the fence signals.
const TimeoutInfinite = ^uint64(0)

// Device info query identifiers.
const (
	InfoAccelWorking = 0x00
	InfoDevInfo      = 0x16
)

// GPU family identifiers reported by the DEV_INFO query. GC 11 is the first
// generation whose register layout this tool targets.
const (
	FamilyAI     = 141
	FamilyNavi   = 143
	FamilyGC1100 = 145
)
