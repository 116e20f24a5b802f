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
	"errors"
	"os"
	"testing"
	"time"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/pm4"
)

// openTestDevice opens the real device, skipping on machines without an
// amdgpu node or without access to it.
func openTestDevice(t *testing.T) *Device {
	t.Helper()
	if _, err := os.Stat(DefaultPath); err != nil {
		t.Skipf("no DRM node at %s", DefaultPath)
	}
	d, err := Open(DefaultPath, nil)
	if err != nil {
		t.Skipf("opening %s: %v", DefaultPath, err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestAllocUploadReadback(t *testing.T) {
	d := openTestDevice(t)
	b, err := d.AllocBuffer(PageSize, amdgpu.GEMDomainGTT, false)
	if err != nil {
		t.Fatalf("AllocBuffer: %v", err)
	}
	defer d.FreeBuffer(b)

	if b.VA() == 0 || b.VA()%PageSize != 0 {
		t.Errorf("VA() = %#x, want nonzero page-aligned", b.VA())
	}
	pattern := make([]byte, PageSize)
	for i := range pattern {
		pattern[i] = byte(i * 7)
	}
	b.Upload(pattern)
	if !bytes.Equal(b.HostBytes(), pattern) {
		t.Error("readback after upload does not match the written pattern")
	}

	// Partial-page requests round up to page granularity, and the whole
	// allocation accepts uploads.
	small, err := d.AllocBuffer(100, amdgpu.GEMDomainGTT, false)
	if err != nil {
		t.Fatalf("AllocBuffer(100): %v", err)
	}
	defer d.FreeBuffer(small)
	if small.Size() != PageSize {
		t.Errorf("Size() = %d for a 100 byte request, want %d", small.Size(), PageSize)
	}
	small.Upload(make([]byte, PageSize))
}

func TestEmptySubmission(t *testing.T) {
	d := openTestDevice(t)
	var stream pm4.Stream
	s, err := d.Submit(&stream, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Wait(10 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	s.Cleanup()
}

func TestWaitTimeout(t *testing.T) {
	d := openTestDevice(t)
	var stream pm4.Stream
	s, err := d.Submit(&stream, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// A nanosecond deadline may expire before the no-op fence signals; both
	// a clean signal and ErrFenceTimeout are acceptable, anything else is
	// not.
	err = s.Wait(time.Nanosecond)
	if err != nil && !errors.Is(err, ErrFenceTimeout) {
		t.Fatalf("Wait(1ns) = %v", err)
	}
	if err := s.Wait(10 * time.Second); err != nil {
		t.Fatalf("Wait after timeout: %v", err)
	}
	s.Cleanup()
}
