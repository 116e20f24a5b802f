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

import (
	"testing"
	"unsafe"
)

func TestPKT3HeaderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		op        uint8
		count     uint16
		predicate bool
	}{
		{PKT3SetSHReg, 1, false},
		{PKT3DispatchDirect, 3, false},
		{PKT3AcquireMem, 5, false},
		{PKT3ReleaseMem, 6, false},
		{PKT3NOP, 0, false},
		{PKT3WaitRegMem, 5, true},
		{0xFF, 0x3FFF, true},
	} {
		h := PKT3(tc.op, tc.count, tc.predicate)
		if h>>30 != pkt3Type {
			t.Errorf("PKT3(%#x, %d, %t): packet type = %d, want 3", tc.op, tc.count, tc.predicate, h>>30)
		}
		if got := PKT3Opcode(h); got != tc.op {
			t.Errorf("PKT3Opcode(%#08x) = %#x, want %#x", h, got, tc.op)
		}
		if got := PKT3Count(h); got != tc.count {
			t.Errorf("PKT3Count(%#08x) = %d, want %d", h, got, tc.count)
		}
		if got := PKT3Predicate(h); got != tc.predicate {
			t.Errorf("PKT3Predicate(%#08x) = %t, want %t", h, got, tc.predicate)
		}
	}
}

func TestPKT3ShaderTypeDoesNotClobberHeaderFields(t *testing.T) {
	h := PKT3(PKT3DispatchDirect, 3, false) | PKT3ShaderTypeCompute
	if got := PKT3Opcode(h); got != PKT3DispatchDirect {
		t.Errorf("opcode = %#x, want %#x", got, PKT3DispatchDirect)
	}
	if got := PKT3Count(h); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if PKT3Predicate(h) {
		t.Error("predicate unexpectedly set")
	}
}

// Request numbers below are the values a C program compiled against the
// kernel uapi headers would produce.
func TestIoctlRequestNumbers(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  uint32
		want uint32
	}{
		{"DRM_IOCTL_VERSION", IoctlVersion, 0xC0406400},
		{"DRM_IOCTL_GEM_CLOSE", IoctlGEMClose, 0x40086409},
		{"DRM_IOCTL_AMDGPU_GEM_CREATE", IoctlGEMCreate, 0xC0206440},
		{"DRM_IOCTL_AMDGPU_GEM_MMAP", IoctlGEMMmap, 0xC0086441},
		{"DRM_IOCTL_AMDGPU_CTX", IoctlCtx, 0xC0106442},
		{"DRM_IOCTL_AMDGPU_BO_LIST", IoctlBOList, 0xC0186443},
		{"DRM_IOCTL_AMDGPU_CS", IoctlCS, 0xC0186444},
		{"DRM_IOCTL_AMDGPU_INFO", IoctlInfo, 0x40206445},
		{"DRM_IOCTL_AMDGPU_GEM_VA", IoctlGEMVA, 0x40286448},
		{"DRM_IOCTL_AMDGPU_WAIT_CS", IoctlWaitCS, 0xC0206449},
		{"AMDGPU_DEBUGFS_REGS2_IOC_SET_STATE_V2", Regs2IocSetStateV2, 0x402C2002},
	} {
		if tc.got != tc.want {
			t.Errorf("%s = %#08x, want %#08x", tc.name, tc.got, tc.want)
		}
	}
}

func TestStructSizes(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"DRMVersion", unsafe.Sizeof(DRMVersion{}), 64},
		{"GEMCreateIn", unsafe.Sizeof(GEMCreateIn{}), 32},
		{"CtxIn", unsafe.Sizeof(CtxIn{}), 16},
		{"BOListIn", unsafe.Sizeof(BOListIn{}), 24},
		{"CSIn", unsafe.Sizeof(CSIn{}), 24},
		{"CSChunk", unsafe.Sizeof(CSChunk{}), 16},
		{"CSChunkIB", unsafe.Sizeof(CSChunkIB{}), 32},
		{"WaitCSIn", unsafe.Sizeof(WaitCSIn{}), 32},
		{"GEMVA", unsafe.Sizeof(GEMVA{}), 40},
		{"Info", unsafe.Sizeof(Info{}), 32},
		{"InfoDevice", unsafe.Sizeof(InfoDevice{}), 160},
		{"Regs2StateV2", unsafe.Sizeof(Regs2StateV2{}), 44},
	} {
		if tc.got != tc.want {
			t.Errorf("sizeof(%s) = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}
