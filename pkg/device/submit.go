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
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/cleanup"
	"hwdbg.dev/hwdbg/pkg/pm4"
)

// ErrFenceTimeout is returned by Wait when the fence has not signaled by the
// deadline. The submission is still in flight; its resources must not be
// released.
var ErrFenceTimeout = errors.New("fence wait timed out")

// Fence identifies one submission for WAIT_CS.
type Fence struct {
	CtxID      uint32
	IPType     uint32
	IPInstance uint32
	Ring       uint32
	Seq        uint64
}

// Submission is an in-flight command stream. The caller must Wait for it and
// then Cleanup it; Cleanup before a successful Wait frees memory the GPU is
// still reading.
type Submission struct {
	dev    *Device
	ib     *Buffer
	boList uint32
	fence  Fence
}

// Fence returns the submission's fence identity.
func (s *Submission) Fence() Fence {
	return s.fence
}

// Submit copies the stream into a fresh indirect buffer and submits it on
// the compute queue, referencing buffers (and the indirect buffer itself) in
// the submission's buffer list. An empty stream is a valid no-op submission
// whose fence signals once the queue reaches it.
func (d *Device) Submit(stream *pm4.Stream, buffers []*Buffer) (*Submission, error) {
	ibBytes := stream.Size()
	allocBytes := uint64(ibBytes)
	if allocBytes == 0 {
		allocBytes = PageSize
	}
	ib, err := d.AllocBuffer(allocBytes, amdgpu.GEMDomainGTT, false)
	if err != nil {
		return nil, fmt.Errorf("allocating indirect buffer: %w", err)
	}
	cu := cleanup.Make(func() { d.FreeBuffer(ib) })
	defer cu.Clean()
	if ibBytes > 0 {
		ib.Upload(stream.Bytes())
	}

	entries := make([]amdgpu.BOListEntry, 0, len(buffers)+1)
	entries = append(entries, amdgpu.BOListEntry{BOHandle: ib.Handle()})
	for _, b := range buffers {
		entries = append(entries, amdgpu.BOListEntry{BOHandle: b.Handle()})
	}
	boList, err := d.boListCreate(entries)
	if err != nil {
		return nil, err
	}
	cu.Add(func() { d.boListDestroy(boList) })

	seq, err := d.csSubmit(boList, ib.VA(), ibBytes)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("submitted %d dwords, fence seq %d", stream.Len(), seq)

	cu.Release()
	return &Submission{
		dev:    d,
		ib:     ib,
		boList: boList,
		fence: Fence{
			CtxID:  d.ctxID,
			IPType: amdgpu.HWIPCompute,
			Seq:    seq,
		},
	}, nil
}

// Wait blocks until the submission's fence signals or timeout elapses. A
// timeout of 0 waits forever. Returns ErrFenceTimeout if the deadline passes
// first; the submission remains in flight and Wait may be called again.
func (s *Submission) Wait(timeout time.Duration) error {
	deadline := amdgpu.TimeoutInfinite
	if timeout > 0 {
		var ts unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
			return fmt.Errorf("clock_gettime: %w", err)
		}
		deadline = uint64(ts.Nano()) + uint64(timeout.Nanoseconds())
	}
	req := amdgpu.WaitCSIn{
		Handle:     s.fence.Seq,
		Timeout:    deadline,
		IPType:     s.fence.IPType,
		IPInstance: s.fence.IPInstance,
		Ring:       s.fence.Ring,
		CtxID:      s.fence.CtxID,
	}
	if err := ioctlInvokePtr(s.dev.fd, amdgpu.IoctlWaitCS, &req); err != nil {
		return fmt.Errorf("WAIT_CS for seq %d: %w", s.fence.Seq, err)
	}
	if unionOut[amdgpu.WaitCSOut](&req).Status != 0 {
		return fmt.Errorf("seq %d after %v: %w", s.fence.Seq, timeout, ErrFenceTimeout)
	}
	return nil
}

// Cleanup destroys the buffer list and frees the indirect buffer. Call only
// after a successful Wait. Cleanup is idempotent.
func (s *Submission) Cleanup() {
	if s.boList != 0 {
		s.dev.boListDestroy(s.boList)
		s.boList = 0
	}
	s.dev.FreeBuffer(s.ib)
}

func (d *Device) boListDestroy(handle uint32) {
	req := amdgpu.BOListIn{
		Operation:  amdgpu.BOListOpDestroy,
		ListHandle: handle,
	}
	if err := ioctlInvokePtr(d.fd, amdgpu.IoctlBOList, &req); err != nil {
		klog.Warningf("BO_LIST destroy of handle %d: %v", handle, err)
	}
}
