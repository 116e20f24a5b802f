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

// Core DRM ioctls used by the debugger, from include/uapi/drm/drm.h.
var (
	IoctlVersion  = drmIOWR(0x00, uint32(unsafe.Sizeof(DRMVersion{})))
	IoctlGEMClose = drmIOW(0x09, uint32(unsafe.Sizeof(GEMClose{})))
)

// DRMVersion is struct drm_version. The three pointer fields carry host
// addresses of caller-owned byte buffers; the kernel truncates each string to
// the corresponding length field and writes back the full length.
type DRMVersion struct {
	Major   int32
	Minor   int32
	Patch   int32
	_       int32
	NameLen uint64
	Name    uint64
	DateLen uint64
	Date    uint64
	DescLen uint64
	Desc    uint64
}

// GEMClose is struct drm_gem_close, the parameter for DRM_IOCTL_GEM_CLOSE.
type GEMClose struct {
	Handle uint32
	_      uint32
}
