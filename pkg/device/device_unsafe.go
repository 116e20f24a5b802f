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
	"bytes"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/exp/constraints"
	"golang.org/x/sys/unix"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
)

// ioctlInvoke makes an ioctl syscall with an integer argument.
func ioctlInvoke[Cmd constraints.Integer](fd int, cmd Cmd, arg uintptr) error {
	// unix.Syscall, not RawSyscall: several of these ioctls (WAIT_CS above
	// all) block in the kernel.
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(cmd), arg); errno != 0 {
		return errno
	}
	return nil
}

// ioctlInvokePtr makes an ioctl syscall whose argument is a pointer to a
// kernel parameter struct.
func ioctlInvokePtr[Cmd constraints.Integer, Params any](fd int, cmd Cmd, params *Params) error {
	err := ioctlInvoke(fd, cmd, uintptr(unsafe.Pointer(params)))
	runtime.KeepAlive(params)
	return err
}

// unionOut reinterprets an ioctl input struct as the ioctl's output view.
// The amdgpu command ioctls take C unions; the kernel overwrites the input
// storage with the result.
func unionOut[Out any, In any](in *In) *Out {
	if unsafe.Sizeof(*(*Out)(nil)) > unsafe.Sizeof(*(*In)(nil)) {
		panic("ioctl output view larger than the union storage")
	}
	return (*Out)(unsafe.Pointer(in))
}

// drmVersion runs DRM_IOCTL_VERSION and returns the driver's version and
// name.
func drmVersion(fd int) (major, minor int32, name string, err error) {
	nameBuf := make([]byte, 64)
	v := amdgpu.DRMVersion{
		NameLen: uint64(len(nameBuf)),
		Name:    uint64(uintptr(unsafe.Pointer(&nameBuf[0]))),
	}
	if err := ioctlInvokePtr(fd, amdgpu.IoctlVersion, &v); err != nil {
		return 0, 0, "", fmt.Errorf("DRM_IOCTL_VERSION: %w", err)
	}
	runtime.KeepAlive(nameBuf)
	n := int(v.NameLen)
	if n > len(nameBuf) {
		n = len(nameBuf)
	}
	return v.Major, v.Minor, string(bytes.TrimRight(nameBuf[:n], "\x00")), nil
}

// queryDeviceInfo runs the AMDGPU_INFO_DEV_INFO query.
func queryDeviceInfo(fd int) (amdgpu.InfoDevice, error) {
	var out amdgpu.InfoDevice
	req := amdgpu.Info{
		ReturnPointer: uint64(uintptr(unsafe.Pointer(&out))),
		ReturnSize:    uint32(unsafe.Sizeof(out)),
		Query:         amdgpu.InfoDevInfo,
	}
	err := ioctlInvokePtr(fd, amdgpu.IoctlInfo, &req)
	runtime.KeepAlive(&out)
	if err != nil {
		return amdgpu.InfoDevice{}, fmt.Errorf("AMDGPU_INFO_DEV_INFO: %w", err)
	}
	return out, nil
}

// boListCreate registers a buffer list with the device and returns its
// handle.
func (d *Device) boListCreate(entries []amdgpu.BOListEntry) (uint32, error) {
	req := amdgpu.BOListIn{
		Operation:  amdgpu.BOListOpCreate,
		BONumber:   uint32(len(entries)),
		BOInfoSize: uint32(unsafe.Sizeof(amdgpu.BOListEntry{})),
		BOInfoPtr:  uint64(uintptr(unsafe.Pointer(&entries[0]))),
	}
	err := ioctlInvokePtr(d.fd, amdgpu.IoctlBOList, &req)
	runtime.KeepAlive(entries)
	if err != nil {
		return 0, fmt.Errorf("BO_LIST create: %w", err)
	}
	return unionOut[amdgpu.BOListOut](&req).ListHandle, nil
}

// csSubmit issues the command submission ioctl for a single indirect buffer
// on the compute queue and returns the fence sequence number.
func (d *Device) csSubmit(boList uint32, ibVA uint64, ibBytes int) (uint64, error) {
	ibChunk := amdgpu.CSChunkIB{
		VAStart: ibVA,
		IBBytes: uint32(ibBytes),
		IPType:  amdgpu.HWIPCompute,
	}
	chunk := amdgpu.CSChunk{
		ChunkID:   amdgpu.ChunkIDIB,
		LengthDW:  uint32(unsafe.Sizeof(ibChunk)) / 4,
		ChunkData: uint64(uintptr(unsafe.Pointer(&ibChunk))),
	}
	chunkPtrs := [1]uint64{uint64(uintptr(unsafe.Pointer(&chunk)))}
	req := amdgpu.CSIn{
		CtxID:        d.ctxID,
		BOListHandle: boList,
		NumChunks:    1,
		Chunks:       uint64(uintptr(unsafe.Pointer(&chunkPtrs[0]))),
	}
	err := ioctlInvokePtr(d.fd, amdgpu.IoctlCS, &req)
	runtime.KeepAlive(&ibChunk)
	runtime.KeepAlive(&chunk)
	runtime.KeepAlive(&chunkPtrs)
	if err != nil {
		return 0, fmt.Errorf("CS submit: %w", err)
	}
	return unionOut[amdgpu.CSOut](&req).Handle, nil
}
