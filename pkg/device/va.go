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
	"sync"
)

// vaAllocator hands out GPU virtual address ranges from the window the
// kernel reports for this device. amdgpu leaves VA layout to userspace; a
// bump allocator with last-range rollback is enough for the debugger's
// allocate-submit-free pattern, where the indirect buffer freed after each
// wait is the most recent reservation.
type vaAllocator struct {
	mu    sync.Mutex
	next  uint64
	top   uint64
	align uint64
}

func (a *vaAllocator) init(base, top, align uint64) {
	if align < PageSize {
		align = PageSize
	}
	a.next = alignUp(base, align)
	a.top = top
	a.align = align
}

// reserve returns an aligned range of at least size bytes.
func (a *vaAllocator) reserve(size uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	size = alignUp(size, a.align)
	if size == 0 || a.next+size > a.top || a.next+size < a.next {
		return 0, fmt.Errorf("GPU VA space exhausted reserving %#x bytes at %#x", size, a.next)
	}
	base := a.next
	a.next += size
	return base, nil
}

// release returns a range to the allocator. Only the most recently reserved
// range is actually reclaimed; earlier ranges stay consumed until the device
// is closed.
func (a *vaAllocator) release(base, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	size = alignUp(size, a.align)
	if base+size == a.next {
		a.next = base
	}
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
