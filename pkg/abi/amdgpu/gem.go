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

// Most amdgpu command ioctls take a union of an input and an output view over
// the same memory. The *In types below define the union's layout and size;
// the corresponding *Out types are overlaid on the same storage after the
// ioctl returns (see package device).

// GEMCreateIn is the input view of union drm_amdgpu_gem_create.
type GEMCreateIn struct {
	BOSize      uint64
	Alignment   uint64
	Domains     uint64
	DomainFlags uint64
}

// GEMCreateOut is the output view of union drm_amdgpu_gem_create.
type GEMCreateOut struct {
	Handle uint32
	_      uint32
}

// GEMMmapIn is the input view of union drm_amdgpu_gem_mmap.
type GEMMmapIn struct {
	Handle uint32
	_      uint32
}

// GEMMmapOut is the output view of union drm_amdgpu_gem_mmap. AddrPtr is the
// fake mmap offset to use on the DRM device node.
type GEMMmapOut struct {
	AddrPtr uint64
}

// CtxIn is the input view of union drm_amdgpu_ctx.
type CtxIn struct {
	Op       uint32
	Flags    uint32
	CtxID    uint32
	Priority int32
}

// CtxAllocOut is the output view of union drm_amdgpu_ctx for
// AMDGPU_CTX_OP_ALLOC_CTX.
type CtxAllocOut struct {
	CtxID uint32
	_     uint32
}

// BOListIn is the input view of union drm_amdgpu_bo_list.
type BOListIn struct {
	Operation  uint32
	ListHandle uint32
	BONumber   uint32
	BOInfoSize uint32
	BOInfoPtr  uint64
}

// BOListOut is the output view of union drm_amdgpu_bo_list.
type BOListOut struct {
	ListHandle uint32
	_          uint32
}

// BOListEntry is struct drm_amdgpu_bo_list_entry.
type BOListEntry struct {
	BOHandle   uint32
	BOPriority uint32
}

// CSIn is the input view of union drm_amdgpu_cs. Chunks is the host address
// of an array of NumChunks uint64s, each the host address of a CSChunk.
type CSIn struct {
	CtxID        uint32
	BOListHandle uint32
	NumChunks    uint32
	Flags        uint32
	Chunks       uint64
}

// CSOut is the output view of union drm_amdgpu_cs. Handle is the fence
// sequence number of the submission.
type CSOut struct {
	Handle uint64
}

// CSChunk is struct drm_amdgpu_cs_chunk.
type CSChunk struct {
	ChunkID   uint32
	LengthDW  uint32
	ChunkData uint64
}

// CSChunkIB is struct drm_amdgpu_cs_chunk_ib, the payload of an
// AMDGPU_CHUNK_ID_IB chunk.
type CSChunkIB struct {
	_          uint32
	Flags      uint32
	VAStart    uint64
	IBBytes    uint32
	IPType     uint32
	IPInstance uint32
	Ring       uint32
}

// WaitCSIn is the input view of union drm_amdgpu_wait_cs. A Timeout of
// TimeoutInfinite blocks until the fence signals; any other value is an
// absolute CLOCK_MONOTONIC deadline in nanoseconds.
type WaitCSIn struct {
	Handle     uint64
	Timeout    uint64
	IPType     uint32
	IPInstance uint32
	Ring       uint32
	CtxID      uint32
}

// WaitCSOut is the output view of union drm_amdgpu_wait_cs. A nonzero Status
// means the fence had not signaled when the timeout expired; it is not an
// ioctl error.
type WaitCSOut struct {
	Status uint64
}

// GEMVA is struct drm_amdgpu_gem_va, the parameter for the manual VA mapping
// ioctl. This path, unlike higher-level helpers, exposes the full page
// attribute set (MTYPE, NOALLOC, EXECUTABLE) needed for trap handler code and
// uncached CPU/GPU shared memory.
type GEMVA struct {
	Handle     uint32
	_          uint32
	Operation  uint32
	Flags      uint32
	VAAddress  uint64
	OffsetInBO uint64
	MapSize    uint64
}

// Info is struct drm_amdgpu_info. ReturnPointer is the host address of a
// query-specific result buffer of ReturnSize bytes.
type Info struct {
	ReturnPointer uint64
	ReturnSize    uint32
	Query         uint32
	_             [2]uint64
}

// InfoDevice is the leading portion of struct drm_amdgpu_info_device, the
// result of the AMDGPU_INFO_DEV_INFO query. The kernel copies
// min(ReturnSize, sizeof(dev_info)) bytes, so trailing fields this tool does
// not consume are omitted.
type InfoDevice struct {
	DeviceID                 uint32
	ChipRev                  uint32
	ExternalRev              uint32
	Family                   uint32
	NumShaderEngines         uint32
	NumShaderArraysPerEngine uint32
	GPUCounterFreq           uint32
	_                        uint32
	MaxEngineClock           uint64
	MaxMemoryClock           uint64
	CUActiveNumber           uint32
	CUAOMask                 uint32
	CUBitmap                 [4][4]uint32
	IDsFlags                 uint64
	VirtualAddressOffset     uint64
	VirtualAddressMax        uint64
	VirtualAddressAlignment  uint32
	PTEFragmentSize          uint32
	GARTPageSize             uint32
	_                        uint32
}
