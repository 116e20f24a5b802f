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

// Package amdgpu defines the kernel ABI consumed by the debugger: the DRM
// amdgpu command ioctls (from include/uapi/drm/amdgpu_drm.h), the debugfs
// regs2 register-access interface, and the PM4 type-3 command packet format.
//
// Everything here is pure data; syscalls are issued by package device.
package amdgpu

// ioctl encoding, from include/uapi/asm-generic/ioctl.h.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

// IOC constructs an ioctl request number from its direction, type, number,
// and argument size.
func IOC(dir, typ, nr, size uint32) uint32 {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

// IO, IOR, IOW, and IOWR construct ioctl request numbers in the manner of the
// C macros of the same names.
func IO(typ, nr uint32) uint32 {
	return IOC(iocNone, typ, nr, 0)
}

// IOR is analogous to the C macro _IOR.
func IOR(typ, nr, size uint32) uint32 {
	return IOC(iocRead, typ, nr, size)
}

// IOW is analogous to the C macro _IOW.
func IOW(typ, nr, size uint32) uint32 {
	return IOC(iocWrite, typ, nr, size)
}

// IOWR is analogous to the C macro _IOWR.
func IOWR(typ, nr, size uint32) uint32 {
	return IOC(iocRead|iocWrite, typ, nr, size)
}

// DRM ioctl bases, from include/uapi/drm/drm.h.
const (
	DRMIoctlBase   = 'd'
	DRMCommandBase = 0x40
)

func drmIOWR(nr, size uint32) uint32 {
	return IOWR(DRMIoctlBase, nr, size)
}

func drmIOW(nr, size uint32) uint32 {
	return IOW(DRMIoctlBase, nr, size)
}

// drmCommandIOWR builds the request number for a driver-private read/write
// command ioctl.
func drmCommandIOWR(nr, size uint32) uint32 {
	return drmIOWR(DRMCommandBase+nr, size)
}

// drmCommandIOW builds the request number for a driver-private write-only
// command ioctl.
func drmCommandIOW(nr, size uint32) uint32 {
	return drmIOW(DRMCommandBase+nr, size)
}
