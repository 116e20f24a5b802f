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

// Package device owns the privileged handles for one amdgpu device: the DRM
// node, a command submission context, and the debugfs regs2 register-access
// session. It provides GPU buffer management, PM4 stream submission with
// fence tracking, privileged register reads/writes, and trap handler
// installation.
//
// One Device per process, one debugging process per machine: the regs2
// addressing-context ioctl and the subsequent seek/read/write are separate
// kernel operations, so concurrent users would interleave and address the
// wrong registers. Nothing enforces this; it is an operational requirement.
package device

import (
	"fmt"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/cleanup"
	"hwdbg.dev/hwdbg/pkg/regmap"
)

// DefaultPath is the DRM node used when no device path is given.
const DefaultPath = "/dev/dri/card0"

// PageSize is the GPU page granularity for buffer sizes and virtual
// addresses.
const PageSize = 4096

// Info identifies the opened device.
type Info struct {
	DeviceID    uint32
	ChipRev     uint32
	ExternalRev uint32
	Family      uint32
	DRMMajor    int32
	DRMMinor    int32
}

// Device is the process-wide device context. All buffers, submissions, and
// register sessions derive from it and become invalid when it is closed.
type Device struct {
	fd     int
	ctxID  uint32
	regsFD int // -1 when the debugfs session is unavailable
	regs   *regmap.Map
	info   Info
	va     vaAllocator
}

// Open opens the DRM node at path (DefaultPath if empty), creates a command
// submission context, and probes the debugfs regs2 interface. regs supplies
// the ASIC register map; nil selects the built-in gfx1100 map.
//
// regs2 being unavailable is not an error: buffer and submission operations
// still work, and register/trap operations report unavailable.
func Open(path string, regs *regmap.Map) (*Device, error) {
	if path == "" {
		path = DefaultPath
	}
	if regs == nil {
		regs = regmap.GC11()
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s (are you in the video group?): %w", path, err)
	}
	cu := cleanup.Make(func() { unix.Close(fd) })
	defer cu.Clean()

	major, minor, driver, err := drmVersion(fd)
	if err != nil {
		return nil, err
	}
	if driver != "amdgpu" {
		return nil, fmt.Errorf("%s is driven by %q, not amdgpu", path, driver)
	}
	klog.Infof("amdgpu device opened (DRM %d.%d)", major, minor)

	devInfo, err := queryDeviceInfo(fd)
	if err != nil {
		return nil, err
	}
	klog.Infof("GPU: device_id=%#x chip_rev=%#x external_rev=%#x family=%d",
		devInfo.DeviceID, devInfo.ChipRev, devInfo.ExternalRev, devInfo.Family)
	if devInfo.Family < amdgpu.FamilyGC1100 {
		klog.Warningf("this tool targets the GC 11 (RDNA3) register layout; detected family %d, behavior may be incorrect", devInfo.Family)
	}

	ctxReq := amdgpu.CtxIn{Op: amdgpu.CtxOpAllocCtx, Priority: amdgpu.CtxPriorityNormal}
	if err := ioctlInvokePtr(fd, amdgpu.IoctlCtx, &ctxReq); err != nil {
		return nil, fmt.Errorf("creating submission context: %w", err)
	}
	ctxID := unionOut[amdgpu.CtxAllocOut](&ctxReq).CtxID
	cu.Add(func() { freeCtx(fd, ctxID) })

	regsFD := openRegs2()

	d := &Device{
		fd:     fd,
		ctxID:  ctxID,
		regsFD: regsFD,
		regs:   regs,
		info: Info{
			DeviceID:    devInfo.DeviceID,
			ChipRev:     devInfo.ChipRev,
			ExternalRev: devInfo.ExternalRev,
			Family:      devInfo.Family,
			DRMMajor:    major,
			DRMMinor:    minor,
		},
	}
	d.va.init(devInfo.VirtualAddressOffset, devInfo.VirtualAddressMax, uint64(devInfo.VirtualAddressAlignment))

	cu.Release()
	return d, nil
}

// openRegs2 probes the debugfs regs2 node across DRI device indexes.
// Returns -1 when none can be opened.
func openRegs2() int {
	for i := 0; i < 8; i++ {
		path := fmt.Sprintf(amdgpu.Regs2DebugfsPattern, i)
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err == nil {
			klog.Infof("opened privileged register interface %s", path)
			return fd
		}
	}
	klog.Warning("could not open debugfs regs2; mount debugfs and run with CAP_SYS_ADMIN")
	klog.Warning("register access and trap installation will be unavailable")
	return -1
}

func freeCtx(fd int, ctxID uint32) {
	req := amdgpu.CtxIn{Op: amdgpu.CtxOpFreeCtx, CtxID: ctxID}
	if err := ioctlInvokePtr(fd, amdgpu.IoctlCtx, &req); err != nil {
		klog.Warningf("freeing submission context %d: %v", ctxID, err)
	}
}

// Info returns the device identity.
func (d *Device) Info() Info {
	return d.info
}

// RegsAvailable reports whether the privileged register session is open.
func (d *Device) RegsAvailable() bool {
	return d.regsFD >= 0
}

// Close releases the context and closes all file descriptors, invalidating
// every handle derived from the device. Close is idempotent. The GPU must be
// idle: in-flight submissions referencing this context are abandoned.
func (d *Device) Close() {
	if d.fd < 0 {
		return
	}
	freeCtx(d.fd, d.ctxID)
	if d.regsFD >= 0 {
		unix.Close(d.regsFD)
		d.regsFD = -1
	}
	unix.Close(d.fd)
	d.fd = -1
	klog.V(1).Info("device context closed")
}
