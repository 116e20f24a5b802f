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

import "testing"

func TestVAReserveAligned(t *testing.T) {
	var a vaAllocator
	a.init(0x200000, 0x800000000, 0)
	for _, size := range []uint64{1, PageSize, PageSize + 1, 3 * PageSize} {
		base, err := a.reserve(size)
		if err != nil {
			t.Fatalf("reserve(%#x): %v", size, err)
		}
		if base%PageSize != 0 {
			t.Errorf("reserve(%#x) = %#x, not page aligned", size, base)
		}
	}
}

func TestVAReserveNonOverlapping(t *testing.T) {
	var a vaAllocator
	a.init(0x200000, 0x800000000, PageSize)
	type span struct{ base, end uint64 }
	var spans []span
	for i := 0; i < 16; i++ {
		base, err := a.reserve(PageSize * uint64(i+1))
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		end := base + PageSize*uint64(i+1)
		for _, s := range spans {
			if base < s.end && s.base < end {
				t.Fatalf("range [%#x,%#x) overlaps [%#x,%#x)", base, end, s.base, s.end)
			}
		}
		spans = append(spans, span{base, end})
	}
}

func TestVAReleaseLIFO(t *testing.T) {
	var a vaAllocator
	a.init(0x200000, 0x800000000, PageSize)
	first, err := a.reserve(PageSize)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	second, err := a.reserve(PageSize)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// The most recent range is reclaimed and handed out again.
	a.release(second, PageSize)
	again, err := a.reserve(PageSize)
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	if again != second {
		t.Errorf("reserve after LIFO release = %#x, want %#x", again, second)
	}
	// Releasing an older range is a no-op.
	a.release(first, PageSize)
	next, err := a.reserve(PageSize)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if next == first {
		t.Errorf("reserve reused non-LIFO released range %#x", first)
	}
}

func TestVAExhaustion(t *testing.T) {
	var a vaAllocator
	a.init(0x200000, 0x200000+2*PageSize, PageSize)
	if _, err := a.reserve(PageSize); err != nil {
		t.Fatalf("reserve within window: %v", err)
	}
	if _, err := a.reserve(4 * PageSize); err == nil {
		t.Error("reserve beyond the window succeeded")
	}
}
