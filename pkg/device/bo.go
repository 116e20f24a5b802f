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
	"fmt"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/cleanup"
)

// Buffer is a GPU buffer object with a GPU virtual address mapping and,
// unless the domain precludes CPU access, a host mapping of its pages.
type Buffer struct {
	handle uint32
	domain uint32
	size   uint64
	vaBase uint64
	vaSize uint64
	host   []byte
}

// VA returns the buffer's GPU virtual address.
func (b *Buffer) VA() uint64 {
	return b.vaBase
}

// Size returns the allocated buffer size in bytes: the requested size
// rounded up to page granularity, except for the special hardware resource
// domains, which keep their native units.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Handle returns the GEM handle, for buffer list construction.
func (b *Buffer) Handle() uint32 {
	return b.handle
}

// HostBytes returns the CPU mapping of the buffer, or nil for buffers
// without CPU access.
func (b *Buffer) HostBytes() []byte {
	return b.host
}

// Upload copies data into the buffer through its CPU mapping. It panics on a
// CPU-inaccessible buffer or when data exceeds the buffer size.
func (b *Buffer) Upload(data []byte) {
	if b.host == nil {
		panic("upload to a buffer without CPU access")
	}
	if uint64(len(data)) > b.size {
		panic(fmt.Sprintf("upload of %d bytes into a %d byte buffer", len(data), b.size))
	}
	copy(b.host, data)
}

// AllocBuffer creates a buffer object in domain, maps it into the GPU
// address space, and CPU-maps it unless the domain has no backing pages.
// General domains (GTT, VRAM) are rounded up to page granularity and zero
// filled; the special GDS/GWS/OA domains allocate hardware resource slots at
// their native granularity with no CPU access.
//
// uncached requests uncached page attributes (MTYPE_UC, and USWC on the CPU
// side for GTT), so CPU stores become visible to in-flight waves without a
// cache flush. Required for trap handler scratch memory.
func (d *Device) AllocBuffer(size uint64, domain uint32, uncached bool) (*Buffer, error) {
	special := domain == amdgpu.GEMDomainGDS || domain == amdgpu.GEMDomainGWS || domain == amdgpu.GEMDomainOA
	req := amdgpu.GEMCreateIn{
		BOSize:    size,
		Alignment: PageSize,
		Domains:   uint64(domain),
	}
	if special {
		req.Alignment = 1
		req.DomainFlags = amdgpu.GEMCreateNoCPUAccess
	} else {
		req.BOSize = alignUp(size, PageSize)
		req.DomainFlags = amdgpu.GEMCreateCPUAccessRequired | amdgpu.GEMCreateVRAMCleared | amdgpu.GEMCreateVMAlwaysValid
		if uncached && domain == amdgpu.GEMDomainGTT {
			req.DomainFlags |= amdgpu.GEMCreateCPUGTTUSWC
		}
	}
	boSize := req.BOSize

	if err := ioctlInvokePtr(d.fd, amdgpu.IoctlGEMCreate, &req); err != nil {
		return nil, fmt.Errorf("GEM create (%#x bytes, domain %#x): %w", size, domain, err)
	}
	handle := unionOut[amdgpu.GEMCreateOut](&req).Handle
	cu := cleanup.Make(func() { d.gemClose(handle) })
	defer cu.Clean()

	b := &Buffer{handle: handle, domain: domain, size: boSize}

	if !special {
		vaBase, err := d.va.reserve(boSize)
		if err != nil {
			return nil, err
		}
		cu.Add(func() { d.va.release(vaBase, boSize) })

		var flags uint32 = amdgpu.VMPageReadable | amdgpu.VMPageWriteable | amdgpu.VMPageExecutable
		if uncached {
			flags |= amdgpu.VMMTypeUC | amdgpu.VMPageNoAlloc
		}
		vaReq := amdgpu.GEMVA{
			Handle:    handle,
			Operation: amdgpu.VAOpMap,
			Flags:     flags,
			VAAddress: vaBase,
			MapSize:   boSize,
		}
		if err := ioctlInvokePtr(d.fd, amdgpu.IoctlGEMVA, &vaReq); err != nil {
			return nil, fmt.Errorf("GEM_VA map at %#x: %w", vaBase, err)
		}
		b.vaBase = vaBase
		b.vaSize = boSize
		cu.Add(func() { d.gemVAUnmap(b) })

		mmapReq := amdgpu.GEMMmapIn{Handle: handle}
		if err := ioctlInvokePtr(d.fd, amdgpu.IoctlGEMMmap, &mmapReq); err != nil {
			return nil, fmt.Errorf("GEM mmap offset: %w", err)
		}
		offset := unionOut[amdgpu.GEMMmapOut](&mmapReq).AddrPtr
		host, err := unix.Mmap(d.fd, int64(offset), int(boSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("mmap of GEM handle %d: %w", handle, err)
		}
		b.host = host
		// GTT pages are not guaranteed cleared.
		for i := range host {
			host[i] = 0
		}
	}

	cu.Release()
	return b, nil
}

// FreeBuffer unmaps and destroys the buffer. Freeing a zero-value or already
// freed buffer is a no-op. The caller must ensure no in-flight submission
// references it.
func (d *Device) FreeBuffer(b *Buffer) {
	if b == nil || b.handle == 0 {
		return
	}
	if b.host != nil {
		if err := unix.Munmap(b.host); err != nil {
			klog.Warningf("munmap of GEM handle %d: %v", b.handle, err)
		}
		b.host = nil
	}
	if b.vaSize != 0 {
		d.gemVAUnmap(b)
		d.va.release(b.vaBase, b.vaSize)
	}
	d.gemClose(b.handle)
	*b = Buffer{}
}

func (d *Device) gemVAUnmap(b *Buffer) {
	req := amdgpu.GEMVA{
		Handle:    b.handle,
		Operation: amdgpu.VAOpUnmap,
		VAAddress: b.vaBase,
		MapSize:   b.vaSize,
	}
	if err := ioctlInvokePtr(d.fd, amdgpu.IoctlGEMVA, &req); err != nil {
		klog.Warningf("GEM_VA unmap at %#x: %v", b.vaBase, err)
	}
}

func (d *Device) gemClose(handle uint32) {
	req := amdgpu.GEMClose{Handle: handle}
	if err := ioctlInvokePtr(d.fd, amdgpu.IoctlGEMClose, &req); err != nil {
		klog.Warningf("GEM close of handle %d: %v", handle, err)
	}
}
