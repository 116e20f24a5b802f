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

package wavectl

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hwdbg.dev/hwdbg/pkg/abi/amdgpu"
	"hwdbg.dev/hwdbg/pkg/regmap"
)

type sqWrite struct {
	Reg   regmap.Reg
	VMID  uint32
	Value uint32
}

type fakeRegs struct {
	writes []sqWrite
}

func (f *fakeRegs) WriteReg32(r regmap.Reg, state amdgpu.Regs2StateV2, value uint32) {
	f.writes = append(f.writes, sqWrite{r, state.SRBM.VMID, value})
}

func newTestController(t *testing.T) (*Controller, *fakeRegs) {
	t.Helper()
	regs := &fakeRegs{}
	c, err := New(make([]byte, ScratchSize), regs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, regs
}

func TestNewRejectsShortScratch(t *testing.T) {
	if _, err := New(make([]byte, ScratchSize-1), nil); err == nil {
		t.Error("New accepted an undersized scratch buffer")
	}
}

func TestWaitHalt(t *testing.T) {
	c, _ := newTestController(t)
	// Simulate the trap handler raising the status flag mid-poll.
	go func() {
		time.Sleep(10 * time.Millisecond)
		binary.LittleEndian.PutUint32(c.scratch[offStatus:], statusHalted)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitHalt(ctx); err != nil {
		t.Fatalf("WaitHalt: %v", err)
	}
	if !c.Halted() {
		t.Error("Halted() = false after WaitHalt succeeded")
	}
}

func TestWaitHaltContextCancel(t *testing.T) {
	c, _ := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.WaitHalt(ctx); err == nil {
		t.Error("WaitHalt returned nil with no wave halted")
	}
}

func TestStateDecode(t *testing.T) {
	c, _ := newTestController(t)
	binary.LittleEndian.PutUint32(c.scratch[offHWID:], 0x00321004)
	binary.LittleEndian.PutUint64(c.scratch[offPC:], 0x7FFF12345678)
	binary.LittleEndian.PutUint32(c.scratch[offStatusSGPR:], 0x8001)
	binary.LittleEndian.PutUint32(c.scratch[offMode:], 0x1E0)
	for i := 0; i < numSpillSGPRs; i++ {
		binary.LittleEndian.PutUint32(c.scratch[offSGPR+4*i:], uint32(0xA000+i))
	}

	got := c.State()
	want := WaveState{
		HWID:   0x00321004,
		PC:     0x7FFF12345678,
		Status: 0x8001,
		Mode:   0x1E0,
	}
	for i := range want.SGPR {
		want.SGPR[i] = uint32(0xA000 + i)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPCAndSGPR(t *testing.T) {
	c, _ := newTestController(t)
	c.SetPC(0xCAFE00)
	if got := binary.LittleEndian.Uint64(c.scratch[offPC:]); got != 0xCAFE00 {
		t.Errorf("PC in scratch = %#x, want 0xCAFE00", got)
	}
	c.SetSGPR(3, 0x1234)
	if got := binary.LittleEndian.Uint32(c.scratch[offSGPR+12:]); got != 0x1234 {
		t.Errorf("s3 in scratch = %#x, want 0x1234", got)
	}
}

func TestSetSGPROutOfRange(t *testing.T) {
	c, _ := newTestController(t)
	defer func() {
		if recover() == nil {
			t.Error("SetSGPR(16) did not panic")
		}
	}()
	c.SetSGPR(numSpillSGPRs, 0)
}

func TestResumeClearsHandshake(t *testing.T) {
	c, _ := newTestController(t)
	binary.LittleEndian.PutUint32(c.scratch[offStatus:], statusHalted)
	c.Resume()
	if got := binary.LittleEndian.Uint32(c.scratch[offResume:]); got != 1 {
		t.Errorf("resume flag = %d, want 1", got)
	}
	if c.Halted() {
		t.Error("status flag still halted after Resume")
	}
}

func TestBroadcastTargetsAllVMIDs(t *testing.T) {
	c, regs := newTestController(t)
	c.HaltAll()
	c.StepAll()
	c.ResumeAll()

	var want []sqWrite
	for _, mode := range []uint32{haltModeOn, haltModeStep, haltModeOff} {
		for vmid := uint32(1); vmid <= 8; vmid++ {
			want = append(want, sqWrite{regmap.SQCmd, vmid, sqCmdSetHalt | mode<<4})
		}
	}
	if diff := cmp.Diff(want, regs.writes); diff != "" {
		t.Errorf("SQ_CMD writes mismatch (-want +got):\n%s", diff)
	}
}
